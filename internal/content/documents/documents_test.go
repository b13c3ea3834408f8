package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRUDRoundTrip(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, "api::article.article", map[string]any{"title": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "hello", doc.Data["title"])

	updated, err := svc.Update(ctx, "api::article.article", doc.ID, map[string]any{"title": "bye"})
	require.NoError(t, err)
	assert.Equal(t, "bye", updated.Data["title"])

	found, err := svc.FindOne(ctx, "api::article.article", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)

	_, err = svc.Delete(ctx, "api::article.article", doc.ID)
	require.NoError(t, err)

	_, err = svc.FindOne(ctx, "api::article.article", doc.ID)
	assert.Error(t, err)
}

func TestUpdate_ConcurrentUpdatesToOneDocument(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, "api::article.article", map[string]any{"title": "contended"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := fmt.Sprintf("field-%d", worker)
			for j := 0; j < 100; j++ {
				_, err := svc.Update(ctx, "api::article.article", doc.ID, map[string]any{key: j})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	final, err := svc.FindOne(ctx, "api::article.article", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "contended", final.Data["title"])
	for i := 0; i < workers; i++ {
		assert.Equal(t, 99, final.Data[fmt.Sprintf("field-%d", i)])
	}
}

func TestUpdate_ReturnedDocumentIsDetachedFromStore(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "api::article.article", map[string]any{"title": "v1"})
	require.NoError(t, err)

	first, err := svc.Update(ctx, "api::article.article", created.ID, map[string]any{"title": "v2"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "api::article.article", created.ID, map[string]any{"title": "v3"})
	require.NoError(t, err)

	// Earlier results keep the data they were returned with.
	assert.Equal(t, "v1", created.Data["title"])
	assert.Equal(t, "v2", first.Data["title"])
}

func TestMiddleware_RunInRegistrationOrder(t *testing.T) {
	svc := NewService()
	var order []string

	svc.Use(func(ctx context.Context, op *Operation, next Next) error {
		order = append(order, "outer-before")
		err := next(ctx)
		order = append(order, "outer-after")
		return err
	})
	svc.Use(func(ctx context.Context, op *Operation, next Next) error {
		order = append(order, "inner-before")
		err := next(ctx)
		order = append(order, "inner-after")
		return err
	})

	_, err := svc.Create(context.Background(), "api::article.article", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer-before", "inner-before", "inner-after", "outer-after"}, order)
}

func TestMiddleware_SeesResultAfterNext(t *testing.T) {
	svc := NewService()
	var sawResult bool

	svc.Use(func(ctx context.Context, op *Operation, next Next) error {
		require.Nil(t, op.Result)
		if err := next(ctx); err != nil {
			return err
		}
		sawResult = op.Result != nil
		return nil
	})

	_, err := svc.Create(context.Background(), "api::article.article", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, sawResult)
}

func TestMiddleware_CanAbortOperation(t *testing.T) {
	svc := NewService()
	boom := errors.New("blocked")

	svc.Use(func(context.Context, *Operation, Next) error { return boom })

	_, err := svc.Create(context.Background(), "api::article.article", nil)
	assert.ErrorIs(t, err, boom)
}

func TestMiddleware_ErrorFromEnginePropagates(t *testing.T) {
	svc := NewService()
	var sawError error

	svc.Use(func(ctx context.Context, op *Operation, next Next) error {
		sawError = next(ctx)
		return sawError
	})

	_, err := svc.Update(context.Background(), "api::article.article", "missing", nil)
	assert.Error(t, err)
	assert.Equal(t, err, sawError)
}
