package query

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/audit"
	"chronicle/internal/audit/store/memory"
	dErrors "chronicle/pkg/domain-errors"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(st, logger), st
}

func seedRecords(t *testing.T, st *memory.Store, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		rec := audit.Record{
			Action:          "entry.create",
			Date:            base.Add(time.Duration(i) * time.Hour),
			UserDisplayName: "alice",
			Method:          "POST",
		}
		require.NoError(t, st.Insert(context.Background(), &rec))
	}
}

func TestFind_DefaultsAndPaginationMeta(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 30)

	res, err := svc.Find(context.Background(), Params{})
	require.NoError(t, err)

	assert.Len(t, res.Records, DefaultPageSize)
	assert.Equal(t, Pagination{Page: 1, PageSize: 25, PageCount: 2, Total: 30}, res.Pagination)

	// Newest first by default.
	assert.True(t, res.Records[0].Date.After(res.Records[1].Date))
}

func TestFind_ClampsPagination(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 3)

	cases := []struct {
		name         string
		params       Params
		wantPage     int
		wantPageSize int
	}{
		{"zero page", Params{Page: "0"}, 1, 25},
		{"negative page", Params{Page: "-4"}, 1, 25},
		{"garbage page", Params{Page: "abc"}, 1, 25},
		{"zero page size", Params{PageSize: "0"}, 1, 1},
		{"oversized page size", Params{PageSize: "5000"}, 1, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Find(context.Background(), tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPage, res.Pagination.Page)
			assert.Equal(t, tc.wantPageSize, res.Pagination.PageSize)
		})
	}
}

func TestFind_SortValidation(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 2)

	_, err := svc.Find(context.Background(), Params{Sort: "payload:asc"})
	var dErr dErrors.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeBadRequest, dErr.Code)

	_, err = svc.Find(context.Background(), Params{Sort: "date:sideways"})
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeBadRequest, dErr.Code)

	res, err := svc.Find(context.Background(), Params{Sort: "date:asc"})
	require.NoError(t, err)
	assert.True(t, res.Records[0].Date.Before(res.Records[1].Date))

	_, err = svc.Find(context.Background(), Params{Sort: "statusCode"})
	require.NoError(t, err)
}

func TestFind_MethodFilterValidation(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 2)

	res, err := svc.Find(context.Background(), Params{Method: "post"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Pagination.Total)

	_, err = svc.Find(context.Background(), Params{Method: "TRACE"})
	var dErr dErrors.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeBadRequest, dErr.Code)
}

func TestFind_DateFilters(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 24)

	res, err := svc.Find(context.Background(), Params{
		DateFrom: "2026-03-01T10:00:00Z",
		DateTo:   "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Pagination.Total)

	res, err = svc.Find(context.Background(), Params{DateFrom: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(24), res.Pagination.Total)

	_, err = svc.Find(context.Background(), Params{DateFrom: "yesterday"})
	var dErr dErrors.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeBadRequest, dErr.Code)
}

func TestFindOne(t *testing.T) {
	svc, st := newService(t)
	rec := audit.Record{Action: "entry.create", Date: time.Now()}
	require.NoError(t, st.Insert(context.Background(), &rec))

	got, err := svc.FindOne(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "entry.create", got.Action)

	var dErr dErrors.Error

	_, err = svc.FindOne(context.Background(), "999")
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeNotFound, dErr.Code)

	for _, raw := range []string{"abc", "-1", "0", ""} {
		_, err = svc.FindOne(context.Background(), raw)
		require.ErrorAs(t, err, &dErr, "id %q", raw)
		assert.Equal(t, dErrors.CodeBadRequest, dErr.Code)
	}
}

func TestCount(t *testing.T) {
	svc, st := newService(t)
	seedRecords(t, st, 4)

	total, err := svc.Count(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	total, err = svc.Count(context.Background(), Params{Action: "entry.delete"})
	require.NoError(t, err)
	assert.Zero(t, total)
}
