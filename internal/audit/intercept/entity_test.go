package intercept

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/audit"
	"chronicle/internal/audit/classify"
	"chronicle/internal/content/documents"
	"chronicle/pkg/requestcontext"
)

type captureQueue struct {
	mu     sync.Mutex
	events []audit.Event
}

func (q *captureQueue) Enqueue(ev audit.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

func (q *captureQueue) all() []audit.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]audit.Event(nil), q.events...)
}

func defaultClassifier(overrides ...func(*audit.Config)) *classify.Classifier {
	cfg := audit.Config{Enabled: true, TrackedEvents: audit.DefaultTrackedEvents()}
	for _, o := range overrides {
		o(&cfg)
	}
	return classify.New(cfg)
}

func newAuditedDocuments(queue Queue, overrides ...func(*audit.Config)) *documents.Service {
	svc := documents.NewService()
	svc.Use(EntityMiddleware(defaultClassifier(overrides...), queue))
	return svc
}

func TestEntityMiddleware_CapturesSuccessfulMutations(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue)

	ctx := requestcontext.WithActor(context.Background(), &requestcontext.Actor{ID: 3, Username: "alice"})
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")

	doc, err := svc.Create(ctx, "api::article.article", map[string]any{"title": "hi"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "api::article.article", doc.ID, map[string]any{"title": "bye"})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "api::article.article", doc.ID)
	require.NoError(t, err)

	events := queue.all()
	require.Len(t, events, 3)
	assert.Equal(t, "entry.create", events[0].Action)
	assert.Equal(t, "entry.update", events[1].Action)
	assert.Equal(t, "entry.delete", events[2].Action)

	assert.Equal(t, "alice", events[0].Actor.Username)
	assert.Equal(t, "203.0.113.7", events[0].IPAddress)
	assert.Equal(t, "curl/8.0", events[0].UserAgent)
	assert.Equal(t, doc.ID, events[0].Payload["documentId"])
	assert.Equal(t, "api::article.article", events[0].Payload["uid"])
}

func TestEntityMiddleware_ReadsAreNotAudited(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue)

	doc, err := svc.Create(context.Background(), "api::article.article", nil)
	require.NoError(t, err)
	_, err = svc.FindOne(context.Background(), "api::article.article", doc.ID)
	require.NoError(t, err)

	events := queue.all()
	require.Len(t, events, 1)
	assert.Equal(t, "entry.create", events[0].Action)
}

func TestEntityMiddleware_FailedOperationLeavesNoTrace(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue)

	_, err := svc.Update(context.Background(), "api::article.article", "missing", nil)
	require.Error(t, err)
	assert.Empty(t, queue.all())
}

func TestEntityMiddleware_AuditRecordTypeIsNeverLogged(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue)

	_, err := svc.Create(context.Background(), audit.RecordUID, map[string]any{"action": "x"})
	require.NoError(t, err)
	assert.Empty(t, queue.all())
}

func TestEntityMiddleware_UsesObservationEndpoint(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue)

	ctx := WithObservation(context.Background(), &Observation{
		Endpoint: "/content-manager/collection-types/api::article.article/7/actions/publish",
		Method:   "POST",
	})

	_, err := svc.Update(ctx, "api::article.article", mustCreate(t, svc, "api::article.article"), nil)
	require.NoError(t, err)

	events := queue.all()
	// The create from mustCreate plus the publish.
	require.Len(t, events, 2)
	assert.Equal(t, "entry.publish", events[1].Action)
	assert.Equal(t, "POST", events[1].Method)
}

func TestEntityMiddleware_ExcludedEndpointSuppresses(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedDocuments(queue, func(cfg *audit.Config) {
		cfg.ExcludeEndpoints = []string{"/internal/"}
	})

	ctx := WithObservation(context.Background(), &Observation{Endpoint: "/internal/seed", Method: "POST"})
	_, err := svc.Create(ctx, "api::article.article", nil)
	require.NoError(t, err)
	assert.Empty(t, queue.all())
}

func TestEntityMiddleware_AbortingMiddlewarePropagates(t *testing.T) {
	queue := &captureQueue{}
	svc := documents.NewService()
	svc.Use(EntityMiddleware(defaultClassifier(), queue))
	boom := errors.New("validation failed")
	svc.Use(func(context.Context, *documents.Operation, documents.Next) error { return boom })

	_, err := svc.Create(context.Background(), "api::article.article", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, queue.all())
}

func mustCreate(t *testing.T, svc *documents.Service, uid string) string {
	t.Helper()
	doc, err := svc.Create(context.Background(), uid, nil)
	require.NoError(t, err)
	return doc.ID
}
