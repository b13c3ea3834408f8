// Package documents is the entity service of the content layer. Every write
// to any content type flows through one middleware chain, which is the single
// point where cross-cutting concerns such as audit capture attach.
package documents

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dErrors "chronicle/pkg/domain-errors"
)

// Action names the entity operation being performed.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionFindOne Action = "findOne"
)

// Document is one stored entity instance.
type Document struct {
	ID   string         `json:"documentId"`
	UID  string         `json:"uid"`
	Data map[string]any `json:"data"`
}

// Operation describes one call through the service. Middleware may inspect
// and mutate it; Result is populated once the inner handler has run.
type Operation struct {
	UID        string
	Action     Action
	DocumentID string
	Data       map[string]any
	Result     *Document
}

// Next runs the rest of the chain, ending at the storage engine.
type Next func(ctx context.Context) error

// Middleware wraps every operation. Implementations decide whether and when
// to call next; skipping it aborts the operation.
type Middleware func(ctx context.Context, op *Operation, next Next) error

// Service executes entity operations through the registered middleware chain.
type Service struct {
	mu         sync.RWMutex
	middleware []Middleware
	byUID      map[string]map[string]*Document
}

func NewService() *Service {
	return &Service{byUID: map[string]map[string]*Document{}}
}

// Use appends a middleware. Middleware run in registration order, outermost
// first. Not safe to call once operations are flowing.
func (s *Service) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

func (s *Service) Create(ctx context.Context, uid string, data map[string]any) (*Document, error) {
	op := &Operation{UID: uid, Action: ActionCreate, Data: data}
	err := s.run(ctx, op, func(context.Context) error {
		doc := &Document{ID: uuid.NewString(), UID: uid, Data: cloneData(data)}
		s.put(doc)
		op.Result = snapshot(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

func (s *Service) Update(ctx context.Context, uid, documentID string, data map[string]any) (*Document, error) {
	op := &Operation{UID: uid, Action: ActionUpdate, DocumentID: documentID, Data: data}
	err := s.run(ctx, op, func(context.Context) error {
		updated, ok := s.apply(uid, documentID, data)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
		}
		op.Result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

func (s *Service) Delete(ctx context.Context, uid, documentID string) (*Document, error) {
	op := &Operation{UID: uid, Action: ActionDelete, DocumentID: documentID}
	err := s.run(ctx, op, func(context.Context) error {
		existing, ok := s.take(uid, documentID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
		}
		op.Result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

func (s *Service) FindOne(ctx context.Context, uid, documentID string) (*Document, error) {
	op := &Operation{UID: uid, Action: ActionFindOne, DocumentID: documentID}
	err := s.run(ctx, op, func(context.Context) error {
		existing, ok := s.get(uid, documentID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
		}
		op.Result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

// run folds the middleware around the engine handler, outermost first.
func (s *Service) run(ctx context.Context, op *Operation, engine Next) error {
	next := engine
	for i := len(s.middleware) - 1; i >= 0; i-- {
		mw := s.middleware[i]
		inner := next
		next = func(ctx context.Context) error {
			return mw(ctx, op, inner)
		}
	}
	return next(ctx)
}

// Stored documents never leave the lock: every accessor returns a snapshot,
// so results handed to middleware and to the async audit pipeline are safe
// to read while later operations mutate the store.

func (s *Service) put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byUID[doc.UID] == nil {
		s.byUID[doc.UID] = map[string]*Document{}
	}
	s.byUID[doc.UID][doc.ID] = doc
}

func (s *Service) get(uid, documentID string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byUID[uid][documentID]
	if !ok {
		return nil, false
	}
	return snapshot(doc), true
}

// apply merges data into the stored document under the write lock.
func (s *Service) apply(uid, documentID string, data map[string]any) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.byUID[uid][documentID]
	if !ok {
		return nil, false
	}
	for k, v := range data {
		doc.Data[k] = v
	}
	return snapshot(doc), true
}

// take removes the document and returns it. Once out of the map the stored
// instance has no remaining referents, so it is returned as-is.
func (s *Service) take(uid, documentID string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.byUID[uid][documentID]
	if !ok {
		return nil, false
	}
	delete(s.byUID[uid], documentID)
	return doc, true
}

func snapshot(doc *Document) *Document {
	return &Document{ID: doc.ID, UID: doc.UID, Data: cloneData(doc.Data)}
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
