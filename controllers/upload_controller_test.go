package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUploadRouter(dir string) *gin.Engine {
	router := gin.New()
	router.GET("/uploads/:filename", NewUploadController(dir).GetUpload)
	return router
}

func TestGetUpload_Success(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := []byte("fake PNG content")
	testFilename := "receipt.png"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, testFilename), testContent, 0o644))

	req := httptest.NewRequest("GET", "/uploads/"+testFilename, nil)
	w := httptest.NewRecorder()
	setupUploadRouter(tmpDir).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Equal(t, testContent, w.Body.Bytes())
}

func TestGetUpload_PDF(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "menu.PDF"), []byte("%PDF-1.4"), 0o644))

	req := httptest.NewRequest("GET", "/uploads/menu.PDF", nil)
	w := httptest.NewRecorder()
	setupUploadRouter(tmpDir).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestGetUpload_FileNotFound(t *testing.T) {
	req := httptest.NewRequest("GET", "/uploads/nonexistent.png", nil)
	w := httptest.NewRecorder()
	setupUploadRouter(t.TempDir()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "FILE_NOT_FOUND")
}

func TestGetUpload_RejectsUnsafeNames(t *testing.T) {
	router := setupUploadRouter(t.TempDir())

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"hidden file", "/uploads/.env.png", http.StatusBadRequest},
		{"parent directory", "/uploads/../../../etc/passwd", http.StatusNotFound},
		{"backslash", "/uploads/path\\to\\file.png", http.StatusBadRequest},
		{"unsupported type", "/uploads/script.sh", http.StatusBadRequest},
		{"empty name", "/uploads/", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
