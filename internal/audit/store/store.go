// Package store defines persistence for audit records. The postgres
// implementation is the production store; the memory implementation backs
// tests and DB-less development, with identical query semantics.
package store

import (
	"context"
	"errors"
	"time"

	"chronicle/internal/audit"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("audit record not found")

// Filters narrow queries over persisted records.
type Filters struct {
	// Action matches exactly.
	Action string
	// User is a case-insensitive substring match on userDisplayName.
	User string
	// DateFrom and DateTo are inclusive bounds.
	DateFrom *time.Time
	DateTo   *time.Time
	// Method matches exactly (upper-cased upstream).
	Method string
}

// Sort names the requested sort field. Stores always order by date first
// and break ties on id desc so pagination is deterministic across records
// with equal timestamps; Field refines the ordering between those keys.
type Sort struct {
	Field string
	Desc  bool
}

// Query combines filters, ordering, and a pagination window.
type Query struct {
	Filters Filters
	Sort    Sort
	Offset  int
	Limit   int
}

// Store is the persistence contract shared by the writer, the query service
// and the retention manager. Insert sets the record id.
type Store interface {
	Insert(ctx context.Context, rec *audit.Record) error
	Find(ctx context.Context, q Query) ([]audit.Record, error)
	FindByID(ctx context.Context, id int64) (*audit.Record, error)
	Count(ctx context.Context, f Filters) (int64, error)

	// DeleteByID removes a single record. Retention deletes record by
	// record; no bulk primitive is assumed.
	DeleteByID(ctx context.Context, id int64) error

	// IDsBefore returns ids of records with date strictly before cutoff.
	IDsBefore(ctx context.Context, cutoff time.Time) ([]int64, error)

	// OldestIDs returns up to limit record ids ordered by date ascending.
	OldestIDs(ctx context.Context, limit int) ([]int64, error)
}
