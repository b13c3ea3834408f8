// Package retention enforces the deletion policy over stored audit records:
// drop records older than a configured age, or keep only the newest N.
package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"chronicle/internal/audit"
	"chronicle/internal/audit/metrics"
	"chronicle/internal/audit/store"
)

// ErrCleanupRunning is returned when a cleanup is requested while another
// run is still in progress. Overlapping runs are skipped, never queued.
var ErrCleanupRunning = errors.New("audit cleanup already running")

// DefaultSchedule runs cleanup daily at midnight.
const DefaultSchedule = "0 0 * * *"

type Manager struct {
	store   store.Store
	cfg     audit.DeletionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	locker  Locker
	now     func() time.Time

	mu sync.Mutex
}

type Option func(*Manager)

// WithLocker adds a cross-replica lock on top of the in-process guard.
func WithLocker(l Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithClock overrides the cutoff time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, cfg audit.DeletionConfig, logger *slog.Logger, met *metrics.Metrics, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		cfg:     cfg,
		logger:  logger,
		metrics: met,
		locker:  NoopLocker{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cleanup applies the configured deletion policy once and returns the number
// of records removed. A run that finds another cleanup in progress returns
// ErrCleanupRunning without touching the store.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if !m.cfg.Enabled {
		return 0, nil
	}

	if !m.mu.TryLock() {
		return 0, ErrCleanupRunning
	}
	defer m.mu.Unlock()

	release, acquired, err := m.locker.TryAcquire(ctx)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, ErrCleanupRunning
	}
	defer release()

	ids, err := m.expiredIDs(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		if err := m.store.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			m.logger.ErrorContext(ctx, "failed to delete expired audit record", "error", err, "id", id)
			continue
		}
		deleted++
	}

	m.metrics.AddCleanupDeleted(deleted)
	m.logger.InfoContext(ctx, "audit cleanup finished",
		"frequency", string(m.cfg.Frequency),
		"deleted", deleted,
	)
	return deleted, nil
}

// Schedule registers the cleanup job on c. Errors from scheduled runs are
// logged, never propagated; a skipped overlapping run is not an error.
func (m *Manager) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return c.AddFunc(schedule, func() {
		ctx := context.Background()
		if _, err := m.Cleanup(ctx); err != nil && !errors.Is(err, ErrCleanupRunning) {
			m.logger.ErrorContext(ctx, "scheduled audit cleanup failed", "error", err)
		}
	})
}

func (m *Manager) expiredIDs(ctx context.Context) ([]int64, error) {
	switch m.cfg.Frequency {
	case audit.FrequencyLogAge:
		cutoff, ok := m.ageCutoff()
		if !ok {
			m.logger.Warn("unknown retention interval, skipping cleanup",
				"interval", string(m.cfg.Interval))
			return nil, nil
		}
		return m.store.IDsBefore(ctx, cutoff)

	case audit.FrequencyLogCount:
		total, err := m.store.Count(ctx, store.Filters{})
		if err != nil {
			return nil, err
		}
		excess := total - int64(m.cfg.Value)
		if excess <= 0 {
			return nil, nil
		}
		return m.store.OldestIDs(ctx, int(excess))

	default:
		m.logger.Warn("unknown retention frequency, skipping cleanup",
			"frequency", string(m.cfg.Frequency))
		return nil, nil
	}
}

func (m *Manager) ageCutoff() (time.Time, bool) {
	now := m.now()
	switch m.cfg.Interval {
	case audit.IntervalDay:
		return now.AddDate(0, 0, -m.cfg.Value), true
	case audit.IntervalWeek:
		return now.AddDate(0, 0, -7*m.cfg.Value), true
	case audit.IntervalMonth:
		return now.AddDate(0, -m.cfg.Value, 0), true
	case audit.IntervalYear:
		return now.AddDate(-m.cfg.Value, 0, 0), true
	default:
		return time.Time{}, false
	}
}
