// Package query serves read access to persisted audit records: filtered,
// sorted, paginated lists plus single-record lookup.
package query

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"chronicle/internal/audit"
	"chronicle/internal/audit/store"
	dErrors "chronicle/pkg/domain-errors"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// sortFields are the only fields a client may sort on.
var sortFields = []string{
	"action", "date", "method", "statusCode", "userDisplayName", "endpoint", "ipAddress",
}

var methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// Params are the raw query-string values; Parse normalizes them.
type Params struct {
	Page     string
	PageSize string
	Sort     string
	Action   string
	User     string
	DateFrom string
	DateTo   string
	Method   string
}

// Pagination describes the served window, echoed back in list responses.
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	PageCount int   `json:"pageCount"`
	Total     int64 `json:"total"`
}

type Result struct {
	Records    []audit.Record
	Pagination Pagination
}

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Find returns one page of records. Out-of-range pagination values are
// clamped rather than rejected; unknown sort fields and methods are 400s.
func (s *Service) Find(ctx context.Context, p Params) (*Result, error) {
	page := clampPage(p.Page)
	pageSize := clampPageSize(p.PageSize)

	sort, err := parseSort(p.Sort)
	if err != nil {
		return nil, err
	}
	filters, err := parseFilters(p)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, filters)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count audit records", "error", err)
		return nil, dErrors.New(dErrors.CodeInternal, "failed to list audit logs")
	}

	records, err := s.store.Find(ctx, store.Query{
		Filters: filters,
		Sort:    sort,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit records", "error", err)
		return nil, dErrors.New(dErrors.CodeInternal, "failed to list audit logs")
	}

	return &Result{
		Records: records,
		Pagination: Pagination{
			Page:      page,
			PageSize:  pageSize,
			PageCount: pageCount(total, pageSize),
			Total:     total,
		},
	}, nil
}

// FindOne returns a single record with its request and response bodies.
func (s *Service) FindOne(ctx context.Context, rawID string) (*audit.Record, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid audit log id")
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit log not found")
		}
		s.logger.ErrorContext(ctx, "failed to load audit record", "error", err, "id", id)
		return nil, dErrors.New(dErrors.CodeInternal, "failed to load audit log")
	}
	return rec, nil
}

// Count returns the number of records matching the filters.
func (s *Service) Count(ctx context.Context, p Params) (int64, error) {
	filters, err := parseFilters(p)
	if err != nil {
		return 0, err
	}
	total, err := s.store.Count(ctx, filters)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count audit records", "error", err)
		return 0, dErrors.New(dErrors.CodeInternal, "failed to count audit logs")
	}
	return total, nil
}

func clampPage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func clampPageSize(raw string) int {
	size, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPageSize
	}
	if size < 1 {
		return 1
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// parseSort accepts "field" or "field:dir". Default is date:desc.
func parseSort(raw string) (store.Sort, error) {
	if raw == "" {
		return store.Sort{Field: "date", Desc: true}, nil
	}

	field, dir, hasDir := strings.Cut(raw, ":")
	if !slices.Contains(sortFields, field) {
		return store.Sort{}, dErrors.New(dErrors.CodeBadRequest, "invalid sort field: "+field)
	}

	desc := true
	if hasDir {
		switch strings.ToLower(dir) {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return store.Sort{}, dErrors.New(dErrors.CodeBadRequest, "invalid sort direction: "+dir)
		}
	}
	return store.Sort{Field: field, Desc: desc}, nil
}

func parseFilters(p Params) (store.Filters, error) {
	f := store.Filters{
		Action: p.Action,
		User:   p.User,
	}

	if p.Method != "" {
		method := strings.ToUpper(p.Method)
		if !slices.Contains(methods, method) {
			return store.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid method filter: "+p.Method)
		}
		f.Method = method
	}

	if p.DateFrom != "" {
		from, err := parseDate(p.DateFrom)
		if err != nil {
			return store.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid date filter: "+p.DateFrom)
		}
		f.DateFrom = &from
	}
	if p.DateTo != "" {
		to, err := parseDate(p.DateTo)
		if err != nil {
			return store.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid date filter: "+p.DateTo)
		}
		f.DateTo = &to
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

func pageCount(total int64, pageSize int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
