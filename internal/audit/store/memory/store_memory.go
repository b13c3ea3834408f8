// Package memory implements the audit store in process memory. It mirrors
// the postgres store's filter and ordering semantics so unit tests and
// DB-less development exercise the same behavior.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chronicle/internal/audit"
	"chronicle/internal/audit/store"
)

type Store struct {
	mu      sync.RWMutex
	records []audit.Record
	nextID  int64
}

func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Insert(_ context.Context, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, *rec)
	return nil
}

func (s *Store) Find(_ context.Context, q store.Query) ([]audit.Record, error) {
	s.mu.RLock()
	matched := s.filtered(q.Filters)
	s.mu.RUnlock()

	sortRecords(matched, q.Sort)

	if q.Offset >= len(matched) {
		return []audit.Record{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Count(_ context.Context, f store.Filters) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filtered(f))), nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) IDsBefore(_ context.Context, cutoff time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for i := range s.records {
		if s.records[i].Date.Before(cutoff) {
			ids = append(ids, s.records[i].ID)
		}
	}
	return ids, nil
}

func (s *Store) OldestIDs(_ context.Context, limit int) ([]int64, error) {
	s.mu.RLock()
	oldest := make([]audit.Record, len(s.records))
	copy(oldest, s.records)
	s.mu.RUnlock()

	sort.SliceStable(oldest, func(i, j int) bool {
		if !oldest[i].Date.Equal(oldest[j].Date) {
			return oldest[i].Date.Before(oldest[j].Date)
		}
		return oldest[i].ID < oldest[j].ID
	})

	if limit > 0 && limit < len(oldest) {
		oldest = oldest[:limit]
	}
	ids := make([]int64, len(oldest))
	for i := range oldest {
		ids[i] = oldest[i].ID
	}
	return ids, nil
}

// filtered returns copies of the matching records; callers must hold at
// least a read lock.
func (s *Store) filtered(f store.Filters) []audit.Record {
	matched := make([]audit.Record, 0, len(s.records))
	for i := range s.records {
		rec := s.records[i]
		if f.Action != "" && rec.Action != f.Action {
			continue
		}
		if f.User != "" && !strings.Contains(strings.ToLower(rec.UserDisplayName), strings.ToLower(f.User)) {
			continue
		}
		if f.DateFrom != nil && rec.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && rec.Date.After(*f.DateTo) {
			continue
		}
		if f.Method != "" && rec.Method != f.Method {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

// sortRecords orders by date (the requested direction when sorting on date,
// desc otherwise), then the requested field, then id desc.
func sortRecords(records []audit.Record, s store.Sort) {
	dateDesc := true
	if s.Field == "date" {
		dateDesc = s.Desc
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			if dateDesc {
				return a.Date.After(b.Date)
			}
			return a.Date.Before(b.Date)
		}
		if s.Field != "" && s.Field != "date" {
			if cmp := compareField(a, b, s.Field); cmp != 0 {
				if s.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return a.ID > b.ID
	})
}

func compareField(a, b audit.Record, field string) int {
	switch field {
	case "statusCode":
		return intPtrValue(a.StatusCode) - intPtrValue(b.StatusCode)
	case "action":
		return strings.Compare(a.Action, b.Action)
	case "method":
		return strings.Compare(a.Method, b.Method)
	case "userDisplayName":
		return strings.Compare(a.UserDisplayName, b.UserDisplayName)
	case "endpoint":
		return strings.Compare(a.Endpoint, b.Endpoint)
	case "ipAddress":
		return strings.Compare(a.IPAddress, b.IPAddress)
	default:
		return 0
	}
}

func intPtrValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
