package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anacarla/crm-api/middleware"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/services"
	"github.com/anacarla/crm-api/tests/testutil"
)

type stubChurnHistory struct {
	result services.ChurnRunResult
	ok     bool
}

func (s stubChurnHistory) LastResult() (services.ChurnRunResult, bool) {
	return s.result, s.ok
}

func TestRunChurnCheck(t *testing.T) {
	env := newTestEnv(t)
	atRisk := testutil.CreateCustomer(t, env.db, "Maria")
	testutil.SetCustomerMetrics(t, env.db, atRisk.ID, testutil.IntPtr(30), testutil.IntPtr(7))
	recent := testutil.CreateCustomer(t, env.db, "Joana")
	testutil.SetCustomerMetrics(t, env.db, recent.ID, testutil.IntPtr(3), testutil.IntPtr(7))

	w, response := performRequest(t, env.router(middleware.RoleManager), http.MethodPost, "/api/v1/admin/churn-check", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", errorCode(response))

	w, response = performRequest(t, env.adminRouter(), http.MethodPost, "/api/v1/admin/churn-check", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, response)
	assert.Equal(t, float64(22), data["threshold_days"])
	assert.Equal(t, float64(7), data["global_avg_interval"])
	assert.Equal(t, float64(1), data["candidates"])
	assert.Equal(t, float64(1), data["created"])

	var tasks []models.Task
	require.NoError(t, env.db.Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, atRisk.ID, *tasks[0].CustomerID)
	assert.Equal(t, models.TaskOriginChurnAlert, tasks[0].Origin)
}

func TestGetLastChurnCheck(t *testing.T) {
	finished := time.Date(2025, 3, 10, 8, 0, 5, 0, time.UTC)

	tests := []struct {
		name           string
		history        ChurnHistory
		expectedStatus int
	}{
		{"no scheduler", nil, http.StatusNotFound},
		{"not run yet", stubChurnHistory{}, http.StatusNotFound},
		{"last run", stubChurnHistory{ok: true, result: services.ChurnRunResult{Enabled: true, Created: 4, FinishedAt: finished}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminController(nil, tt.history)
			router := gin.New()
			router.GET("/churn-check", h.GetLastChurnCheck)

			w, response := performRequest(t, router, http.MethodGet, "/churn-check", nil)
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				data := dataOf(t, response)
				assert.Equal(t, float64(4), data["created"])
				assert.Equal(t, "2025-03-10T08:00:05Z", data["finished_at"])
			}
		})
	}
}

type contextCheckingRunner struct {
	gotDeadline bool
}

func (r *contextCheckingRunner) Run(ctx context.Context) services.ChurnRunResult {
	_, r.gotDeadline = ctx.Deadline()
	return services.ChurnRunResult{Enabled: true}
}

func TestRunChurnCheck_UsesRequestContext(t *testing.T) {
	runner := &contextCheckingRunner{}
	h := NewAdminController(runner, nil)
	router := gin.New()
	router.POST("/churn-check", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Minute)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		h.RunChurnCheck(c)
	})

	w, _ := performRequest(t, router, http.MethodPost, "/churn-check", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.gotDeadline)
}
