package retention

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/audit"
	"chronicle/internal/audit/metrics"
	"chronicle/internal/audit/store"
	"chronicle/internal/audit/store/memory"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T, st store.Store, cfg audit.DeletionConfig, opts ...Option) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewManager(st, cfg, logger, metrics.New(prometheus.NewRegistry()), opts...)
}

func seedAges(t *testing.T, st store.Store, ages ...time.Duration) {
	t.Helper()
	for _, age := range ages {
		rec := audit.Record{Action: "entry.create", Date: fixedNow.Add(-age)}
		require.NoError(t, st.Insert(context.Background(), &rec))
	}
}

func TestCleanup_AgePolicy(t *testing.T) {
	cases := []struct {
		name        string
		interval    audit.RetentionInterval
		value       int
		wantDeleted int
	}{
		{"day", audit.IntervalDay, 10, 2},
		{"week", audit.IntervalWeek, 2, 2},
		{"month", audit.IntervalMonth, 1, 1},
		{"year", audit.IntervalYear, 1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := memory.New()
			// Ages: 1 day, 15 days, 40 days.
			seedAges(t, st, 24*time.Hour, 15*24*time.Hour, 40*24*time.Hour)

			m := newManager(t, st, audit.DeletionConfig{
				Enabled:   true,
				Frequency: audit.FrequencyLogAge,
				Value:     tc.value,
				Interval:  tc.interval,
			})

			deleted, err := m.Cleanup(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.wantDeleted, deleted)

			total, err := st.Count(context.Background(), store.Filters{})
			require.NoError(t, err)
			assert.Equal(t, int64(3-tc.wantDeleted), total)
		})
	}
}

func TestCleanup_AgePolicyZeroValueDeletesAll(t *testing.T) {
	st := memory.New()
	seedAges(t, st, time.Hour, 48*time.Hour)

	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogAge,
		Value:     0,
		Interval:  audit.IntervalDay,
	})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}

func TestCleanup_UnknownIntervalIsNoop(t *testing.T) {
	st := memory.New()
	seedAges(t, st, 400*24*time.Hour)

	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogAge,
		Value:     1,
		Interval:  "fortnight",
	})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCleanup_CountPolicyRemovesOldestExcess(t *testing.T) {
	st := memory.New()
	seedAges(t, st, 5*time.Hour, 4*time.Hour, 3*time.Hour, 2*time.Hour, time.Hour)

	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogCount,
		Value:     2,
	})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := st.Find(context.Background(), store.Query{Sort: store.Sort{Field: "date", Desc: true}})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, fixedNow.Add(-time.Hour), remaining[0].Date)
	assert.Equal(t, fixedNow.Add(-2*time.Hour), remaining[1].Date)
}

func TestCleanup_CountPolicyZeroValueDeletesAll(t *testing.T) {
	st := memory.New()
	seedAges(t, st, time.Hour, 2*time.Hour, 3*time.Hour)

	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogCount,
		Value:     0,
	})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	total, err := st.Count(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCleanup_CountPolicyUnderLimitIsNoop(t *testing.T) {
	st := memory.New()
	seedAges(t, st, time.Hour, 2*time.Hour)

	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogCount,
		Value:     10,
	})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCleanup_DisabledPolicyIsNoop(t *testing.T) {
	st := memory.New()
	seedAges(t, st, 1000*time.Hour)

	m := newManager(t, st, audit.DeletionConfig{Enabled: false, Frequency: audit.FrequencyLogAge, Interval: audit.IntervalDay})

	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	total, err := st.Count(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

type gatedLocker struct {
	mu   sync.Mutex
	held bool
}

func (g *gatedLocker) TryAcquire(context.Context) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return nil, false, nil
	}
	g.held = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.held = false
	}, true, nil
}

func TestCleanup_SkipsWhenLockHeld(t *testing.T) {
	st := memory.New()
	seedAges(t, st, 1000*time.Hour)

	locker := &gatedLocker{held: true}
	m := newManager(t, st, audit.DeletionConfig{
		Enabled:   true,
		Frequency: audit.FrequencyLogCount,
		Value:     0,
	}, WithLocker(locker))

	_, err := m.Cleanup(context.Background())
	assert.ErrorIs(t, err, ErrCleanupRunning)

	// Lock released elsewhere: cleanup proceeds.
	locker.held = false
	deleted, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
