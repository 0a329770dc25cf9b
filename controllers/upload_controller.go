package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/utils"
)

// UploadController serves attachments kept on the local disk
type UploadController struct {
	dir string
}

// NewUploadController creates an UploadController reading from dir
func NewUploadController(dir string) *UploadController {
	return &UploadController{dir: dir}
}

// GetUpload handles GET /api/v1/uploads/:filename - serves a locally stored attachment
func (h *UploadController) GetUpload(c *gin.Context) {
	filename := c.Param("filename")

	// Security: Prevent directory traversal attacks
	filePath, ok := utils.SafeUploadPath(h.dir, filename)
	if !ok || strings.Contains(filename, "\\") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(utils.AllowedAttachmentFormats, ext) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only " + strings.Join(utils.AllowedAttachmentFormats, ", ") + " files are supported",
			},
		})
		return
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Attachment not found",
			},
		})
		return
	}

	c.Header("Content-Type", utils.ContentType(filename))
	c.Header("Cache-Control", "private, max-age=86400")
	c.File(filePath)
}
