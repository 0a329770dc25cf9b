package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"

	"github.com/anacarla/crm-api/utils"
)

// AttachmentStorage handles the files attached to interactions
type AttachmentStorage interface {
	// Upload stores the file and returns its storage key
	Upload(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error)

	// URL returns a URL the client can fetch the file from
	URL(ctx context.Context, key string) (string, error)

	// Delete removes a stored file; unknown keys are not an error
	Delete(ctx context.Context, key string) error
}

// LocalStorage keeps attachments on the local disk and serves them through
// the uploads route.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a LocalStorage rooted at dir
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir is the directory files are written to
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Upload saves the file under the storage directory. prefix is ignored since
// generated names are already unique.
func (s *LocalStorage) Upload(_ context.Context, _ string, fileHeader *multipart.FileHeader) (string, error) {
	return utils.SaveUploadedFile(fileHeader, s.dir)
}

// URL returns the API path that serves key
func (s *LocalStorage) URL(_ context.Context, key string) (string, error) {
	return utils.GetUploadURL(key), nil
}

// Delete removes the file for key
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, ok := utils.SafeUploadPath(s.dir, key)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
