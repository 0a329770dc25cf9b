package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/anacarla/crm-api/utils"
)

// MockAttachmentStorage is an in-memory AttachmentStorage for testing
type MockAttachmentStorage struct {
	files map[string][]byte // map of storage key to file content
	mu    sync.RWMutex

	// FailUploads makes every Upload return an error
	FailUploads bool
}

// NewMockAttachmentStorage creates a new mock attachment storage
func NewMockAttachmentStorage() *MockAttachmentStorage {
	return &MockAttachmentStorage{files: make(map[string][]byte)}
}

// Upload stores the file content in memory
func (m *MockAttachmentStorage) Upload(_ context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	if m.FailUploads {
		return "", fmt.Errorf("mock upload failure")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("attachments/%s/%s", prefix, utils.AttachmentName(fileHeader.Filename))
	m.mu.Lock()
	m.files[key] = content
	m.mu.Unlock()
	return key, nil
}

// URL returns a fake presigned URL for stored keys
func (m *MockAttachmentStorage) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.files[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("file not found in mock storage: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// Delete drops the file from memory
func (m *MockAttachmentStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.files, key)
	m.mu.Unlock()
	return nil
}

// Files returns a copy of every stored file (for testing assertions)
func (m *MockAttachmentStorage) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		files[k] = v
	}
	return files
}

// FileExists checks if a file exists in mock storage
func (m *MockAttachmentStorage) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}
