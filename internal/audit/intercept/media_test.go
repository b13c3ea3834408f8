package intercept

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/audit"
	"chronicle/internal/content/uploader"
)

func newAuditedUploader(queue Queue, overrides ...func(*audit.Config)) uploader.Service {
	return Media(uploader.New(), defaultClassifier(overrides...), queue)
}

func TestMedia_FileLifecycle(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedUploader(queue)
	ctx := context.Background()

	file, err := svc.Upload(ctx, uploader.File{Name: "photo.jpg", Mime: "image/jpeg", Size: 1234})
	require.NoError(t, err)

	_, err = svc.UpdateInfo(ctx, file.ID, "renamed.jpg", "")
	require.NoError(t, err)

	_, err = svc.Remove(ctx, file.ID)
	require.NoError(t, err)

	events := queue.all()
	require.Len(t, events, 3)
	assert.Equal(t, "media.create", events[0].Action)
	assert.Equal(t, "media.update", events[1].Action)
	assert.Equal(t, "media.delete", events[2].Action)

	assert.Equal(t, "photo.jpg", events[0].Payload["name"])
	assert.Equal(t, "renamed.jpg", events[1].Payload["name"])
}

func TestMedia_FailedOperationProducesNoEvent(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedUploader(queue)

	_, err := svc.Remove(context.Background(), "missing")
	require.Error(t, err)
	assert.Empty(t, queue.all())
}

func TestMedia_FolderBatchDelete(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedUploader(queue)
	ctx := context.Background()

	a, err := svc.CreateFolder(ctx, "2026")
	require.NoError(t, err)
	b, err := svc.CreateFolder(ctx, "archive")
	require.NoError(t, err)

	deleted, err := svc.DeleteFolders(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	events := queue.all()
	require.Len(t, events, 4)
	assert.Equal(t, "media-folder.create", events[0].Action)
	assert.Equal(t, "media-folder.create", events[1].Action)
	assert.Equal(t, "media-folder.delete", events[2].Action)
	assert.Equal(t, "media-folder.delete", events[3].Action)

	// Deleted folder names come from the pre-fetch.
	assert.Equal(t, "2026", events[2].Payload["name"])
	assert.Equal(t, "archive", events[3].Payload["name"])
}

func TestMedia_PartialFolderBatchReportsDeletedOnly(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedUploader(queue)
	ctx := context.Background()

	a, err := svc.CreateFolder(ctx, "real")
	require.NoError(t, err)

	_, err = svc.DeleteFolders(ctx, []string{a.ID, "ghost"})
	require.Error(t, err)

	events := queue.all()
	require.Len(t, events, 2)
	assert.Equal(t, "media-folder.delete", events[1].Action)
	assert.Equal(t, "real", events[1].Payload["name"])
}

func TestMedia_UntrackedEventsSuppressed(t *testing.T) {
	queue := &captureQueue{}
	svc := newAuditedUploader(queue, func(cfg *audit.Config) {
		cfg.TrackedEvents = []string{audit.ActionMediaCreate}
	})
	ctx := context.Background()

	file, err := svc.Upload(ctx, uploader.File{Name: "x.png"})
	require.NoError(t, err)
	_, err = svc.Remove(ctx, file.ID)
	require.NoError(t, err)

	events := queue.all()
	require.Len(t, events, 1)
	assert.Equal(t, "media.create", events[0].Action)
}
