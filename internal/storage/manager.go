// Package storage keeps uploaded COMTRADE files on the local filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
)

var (
	// ErrNotFound is returned for an unknown file ID.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedKind is returned when a file is not a .cfg, .dat or .inf file.
	ErrUnsupportedKind = errors.New("unsupported file type")
)

// Store defines the interface for file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
	ReadFile(id string) ([]byte, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	files     map[string]*models.FileInfo
	registry  *parser.Registry
	log       *zap.Logger
}

// Option configures a LocalStore.
type Option func(*LocalStore)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *LocalStore) { s.log = l }
}

// WithRegistry overrides the extension registry used to classify files.
func WithRegistry(r *parser.Registry) Option {
	return func(s *LocalStore) { s.registry = r }
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string, opts ...Option) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	s := &LocalStore{
		uploadDir: uploadDir,
		files:     make(map[string]*models.FileInfo),
		registry:  parser.GetGlobalRegistry(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save stores the content of r under a fresh ID. The file kind is taken from
// the extension of name.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	kind := s.registry.DetectKind(name)
	if kind == models.FileKindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, name)
	}

	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Size:       size,
		UploadedAt: time.Now(),
	}

	s.mu.Lock()
	s.files[id] = info
	s.mu.Unlock()

	s.log.Info("file stored",
		zap.String("id", id),
		zap.String("name", name),
		zap.String("kind", string(kind)),
		zap.Int64("size", size))

	return info, nil
}

// SaveBytes is Save for in-memory content.
func (s *LocalStore) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	return s.Save(name, bytes.NewReader(data))
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return info, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	s.log.Info("file deleted", zap.String("id", id))
	return nil
}

// Rename updates the display name of a file. The kind must not change.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.registry.RequireKind(newName, info.Kind); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, err)
	}

	info.Name = newName
	return info, nil
}

// GetFilePath returns the absolute path to a file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return filepath.Join(s.uploadDir, id), nil
}

// ReadFile returns the stored content of a file.
func (s *LocalStore) ReadFile(id string) ([]byte, error) {
	path, err := s.GetFilePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", id, err)
	}
	return data, nil
}

// RegisterFile adopts a file that already exists in the upload directory,
// for example after a restart.
func (s *LocalStore) RegisterFile(id, name string) (*models.FileInfo, error) {
	kind := s.registry.DetectKind(name)
	if kind == models.FileKindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, name)
	}
	st, err := os.Stat(filepath.Join(s.uploadDir, id))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", id, err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Size:       st.Size(),
		UploadedAt: st.ModTime(),
	}
	s.mu.Lock()
	s.files[id] = info
	s.mu.Unlock()
	return info, nil
}
