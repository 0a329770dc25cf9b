package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/anacarla/crm-api/apperrors"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectDetails  bool
	}{
		{"validation keeps details", apperrors.Validation("bad").WithDetails(map[string]string{"name": "required"}), http.StatusBadRequest, "VALIDATION_ERROR", true},
		{"not found", apperrors.NotFound("customer", "42"), http.StatusNotFound, "NOT_FOUND", false},
		{"conflict", apperrors.Conflict("email already registered"), http.StatusConflict, "CONFLICT", false},
		{"transient hides cause", apperrors.Transient("save customer metrics", errors.New("connection reset")), http.StatusServiceUnavailable, "TRANSIENT_FAILURE", false},
		{"plain error is internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", func(c *gin.Context) { respondError(c, tt.err) })

			w, response := performRequest(t, router, http.MethodGet, "/", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, false, response["success"])
			assert.Equal(t, tt.expectedCode, errorCode(response))

			apiErr := response["error"].(map[string]interface{})
			if tt.expectDetails {
				assert.Contains(t, apiErr, "details")
			} else {
				assert.NotContains(t, apiErr, "details")
			}
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestBindJSON_MalformedBody(t *testing.T) {
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var req TaskRequest
		if !bindJSON(c, &req) {
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestPageQuery(t *testing.T) {
	tests := []struct {
		query  string
		ok     bool
		number int
		size   int
	}{
		{"", true, 0, 0},
		{"?page=2&size=50", true, 2, 50},
		{"?page=abc", false, 0, 0},
		{"?size=-5", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

			page, ok := pageQuery(c)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.number, page.Number)
				assert.Equal(t, tt.size, page.Size)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
