// Package uploader is the media subsystem: files and folders with their own
// storage, separate from the documents service. Audit capture wraps the
// Service interface rather than hooking storage internals.
package uploader

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dErrors "chronicle/pkg/domain-errors"
)

const (
	FileUID   = "plugin::upload.file"
	FolderUID = "plugin::upload.folder"
)

// File is an uploaded asset.
type File struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Mime   string `json:"mime"`
	Size   int64  `json:"size"`
	Folder string `json:"folder,omitempty"`
}

// Folder groups files in the media library.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is the media API the rest of the system consumes. The audit media
// interceptor decorates this interface.
type Service interface {
	Upload(ctx context.Context, file File) (*File, error)
	UpdateInfo(ctx context.Context, fileID string, name, folder string) (*File, error)
	Remove(ctx context.Context, fileID string) (*File, error)
	CreateFolder(ctx context.Context, name string) (*Folder, error)
	FindFolder(ctx context.Context, folderID string) (*Folder, error)
	DeleteFolders(ctx context.Context, folderIDs []string) ([]*Folder, error)
}

type service struct {
	mu      sync.RWMutex
	files   map[string]*File
	folders map[string]*Folder
}

func New() Service {
	return &service{
		files:   map[string]*File{},
		folders: map[string]*Folder{},
	}
}

func (s *service) Upload(_ context.Context, file File) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := file
	stored.ID = uuid.NewString()
	s.files[stored.ID] = &stored
	return &stored, nil
}

func (s *service) UpdateInfo(_ context.Context, fileID string, name, folder string) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("file %s not found", fileID))
	}
	if name != "" {
		file.Name = name
	}
	if folder != "" {
		file.Folder = folder
	}
	return file, nil
}

func (s *service) Remove(_ context.Context, fileID string) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("file %s not found", fileID))
	}
	delete(s.files, fileID)
	return file, nil
}

func (s *service) CreateFolder(_ context.Context, name string) (*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder := &Folder{ID: uuid.NewString(), Name: name}
	s.folders[folder.ID] = folder
	return folder, nil
}

func (s *service) FindFolder(_ context.Context, folderID string) (*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	folder, ok := s.folders[folderID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("folder %s not found", folderID))
	}
	return folder, nil
}

// DeleteFolders removes folders one by one. The first failure stops the
// batch; already deleted folders stay deleted.
func (s *service) DeleteFolders(_ context.Context, folderIDs []string) ([]*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := make([]*Folder, 0, len(folderIDs))
	for _, id := range folderIDs {
		folder, ok := s.folders[id]
		if !ok {
			return deleted, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("folder %s not found", id))
		}
		delete(s.folders, id)
		deleted = append(deleted, folder)
	}
	return deleted, nil
}
