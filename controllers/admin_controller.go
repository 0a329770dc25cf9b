package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/services"
)

// ChurnRunner runs one churn check
type ChurnRunner interface {
	Run(ctx context.Context) services.ChurnRunResult
}

// ChurnHistory reports the last scheduled churn check
type ChurnHistory interface {
	LastResult() (services.ChurnRunResult, bool)
}

// AdminController exposes operational actions
type AdminController struct {
	churn   ChurnRunner
	history ChurnHistory
}

// NewAdminController creates a new AdminController. history may be nil when
// no scheduler runs in this process.
func NewAdminController(churn ChurnRunner, history ChurnHistory) *AdminController {
	return &AdminController{churn: churn, history: history}
}

// RunChurnCheck handles POST /api/v1/admin/churn-check - runs the churn check now and returns its summary
func (h *AdminController) RunChurnCheck(c *gin.Context) {
	result := h.churn.Run(c.Request.Context())
	respondOK(c, http.StatusOK, result)
}

// GetLastChurnCheck handles GET /api/v1/admin/churn-check - the last scheduled run, if any
func (h *AdminController) GetLastChurnCheck(c *gin.Context) {
	if h.history != nil {
		if result, ok := h.history.LastResult(); ok {
			respondOK(c, http.StatusOK, result)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_FOUND",
			"message": "No scheduled churn check has run yet",
		},
	})
}
