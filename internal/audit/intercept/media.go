package intercept

import (
	"context"

	"chronicle/internal/audit"
	"chronicle/internal/audit/classify"
	"chronicle/internal/content/uploader"
	"chronicle/pkg/requestcontext"
)

// mediaService decorates the uploader and captures media events. Like the
// entity middleware, it enqueues only after the wrapped call succeeds.
type mediaService struct {
	inner      uploader.Service
	classifier *classify.Classifier
	queue      Queue
}

// Media wraps an uploader service with audit capture.
func Media(inner uploader.Service, classifier *classify.Classifier, queue Queue) uploader.Service {
	return &mediaService{inner: inner, classifier: classifier, queue: queue}
}

func (m *mediaService) Upload(ctx context.Context, file uploader.File) (*uploader.File, error) {
	stored, err := m.inner.Upload(ctx, file)
	if err != nil {
		return nil, err
	}
	m.emit(ctx, uploader.FileUID, audit.OperationCreate, filePayload(stored))
	return stored, nil
}

func (m *mediaService) UpdateInfo(ctx context.Context, fileID string, name, folder string) (*uploader.File, error) {
	updated, err := m.inner.UpdateInfo(ctx, fileID, name, folder)
	if err != nil {
		return nil, err
	}
	m.emit(ctx, uploader.FileUID, audit.OperationUpdate, filePayload(updated))
	return updated, nil
}

func (m *mediaService) Remove(ctx context.Context, fileID string) (*uploader.File, error) {
	removed, err := m.inner.Remove(ctx, fileID)
	if err != nil {
		return nil, err
	}
	m.emit(ctx, uploader.FileUID, audit.OperationDelete, filePayload(removed))
	return removed, nil
}

func (m *mediaService) CreateFolder(ctx context.Context, name string) (*uploader.Folder, error) {
	folder, err := m.inner.CreateFolder(ctx, name)
	if err != nil {
		return nil, err
	}
	m.emit(ctx, uploader.FolderUID, audit.OperationCreate, folderPayload(folder))
	return folder, nil
}

func (m *mediaService) FindFolder(ctx context.Context, folderID string) (*uploader.Folder, error) {
	return m.inner.FindFolder(ctx, folderID)
}

// DeleteFolders fetches each folder before deletion so events can describe
// what was removed even though the folders are gone by the time they are
// written.
func (m *mediaService) DeleteFolders(ctx context.Context, folderIDs []string) ([]*uploader.Folder, error) {
	prefetched := make(map[string]*uploader.Folder, len(folderIDs))
	for _, id := range folderIDs {
		if folder, err := m.inner.FindFolder(ctx, id); err == nil {
			prefetched[id] = folder
		}
	}

	deleted, err := m.inner.DeleteFolders(ctx, folderIDs)
	for _, folder := range deleted {
		payload := folderPayload(folder)
		if pre, ok := prefetched[folder.ID]; ok {
			payload = folderPayload(pre)
		}
		m.emit(ctx, uploader.FolderUID, audit.OperationDelete, payload)
	}
	return deleted, err
}

func (m *mediaService) emit(ctx context.Context, uid string, op audit.Operation, payload map[string]any) {
	if uid == audit.RecordUID {
		return
	}

	desc := audit.Descriptor{UID: uid, Operation: op}
	if obs := ObservationFrom(ctx); obs != nil {
		desc.Endpoint = obs.Endpoint
		desc.Method = obs.Method
	}

	action, ok := m.classifier.Classify(desc)
	if !ok {
		return
	}

	m.queue.Enqueue(audit.Event{
		Action:    action,
		Payload:   payload,
		Actor:     requestcontext.ActorFrom(ctx),
		Endpoint:  desc.Endpoint,
		Method:    desc.Method,
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}

func filePayload(f *uploader.File) map[string]any {
	return map[string]any{
		"id":   f.ID,
		"name": f.Name,
		"mime": f.Mime,
		"size": f.Size,
	}
}

func folderPayload(f *uploader.Folder) map[string]any {
	return map[string]any{
		"id":   f.ID,
		"name": f.Name,
	}
}
