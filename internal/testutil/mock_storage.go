// mock_storage.go - In-memory storage.Store for testing
package testutil

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
	"github.com/comtrade-viewer/backend/internal/storage"
)

// MockStorage implements storage.Store in memory.
type MockStorage struct {
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	mu       sync.RWMutex
	nextID   atomic.Int64

	// ReadErr, when set, is returned by ReadFile.
	ReadErr error
}

var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	kind := parser.GetGlobalRegistry().DetectKind(name)
	if kind == models.FileKindUnknown {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedKind, name)
	}
	return m.AddFile(m.generateID(), name, data), nil
}

// SaveBytes is Save for in-memory content.
func (m *MockStorage) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	return m.AddFile(m.generateID(), name, data), nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return file, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileInfo, 0, len(m.files))
	for _, file := range m.files {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) Rename(id string, newName string) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	file.Name = newName
	return file, nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	if _, err := m.Get(id); err != nil {
		return "", err
	}
	return "/mock/path/" + id, nil
}

func (m *MockStorage) ReadFile(id string) ([]byte, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return data, nil
}

// AddFile stores data under a fixed ID. The kind comes from the name.
func (m *MockStorage) AddFile(id string, name string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.FileInfo{
		ID:         id,
		Name:       name,
		Kind:       parser.GetGlobalRegistry().DetectKind(name),
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
	}
	m.files[id] = file
	m.fileData[id] = data
	return file
}

// AddRecording stores the fixture recording and returns the cfg, dat and inf IDs.
func (m *MockStorage) AddRecording(ft models.FileType) (cfgID, datID, infID string) {
	m.AddFile("cfg-1", "fault.cfg", []byte(ConfigText(ft)))
	m.AddFile("dat-1", "fault.dat", DataBytes(ft))
	m.AddFile("inf-1", "fault.inf", []byte(InfoText()))
	return "cfg-1", "dat-1", "inf-1"
}

// GetFileCount returns the number of stored files.
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func (m *MockStorage) generateID() string {
	return fmt.Sprintf("test-file-%d", m.nextID.Add(1))
}
