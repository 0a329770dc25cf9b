package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anacarla/crm-api/middleware"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/tests/testutil"
)

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	customer := testutil.CreateCustomer(t, env.db, "Maria")
	bowl := testutil.CreateMenuItem(t, env.db, "Chicken bowl", "32.00")

	tests := []struct {
		name           string
		role           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, data map[string]interface{})
	}{
		{
			name: "Successfully create order from free items",
			role: middleware.RoleAttendant,
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"channel":     "whatsapp",
				"items": []map[string]interface{}{
					{"name": "Juice", "unit_price": "8.50", "quantity": 2},
				},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "received", data["status"])
				assert.Equal(t, "whatsapp", data["channel"])
				assert.Nil(t, data["delivered_at"])
				assert.True(t, decimal.RequireFromString("17").Equal(decimal.RequireFromString(data["total"].(string))))
				assert.Len(t, data["items"], 1)
			},
		},
		{
			name: "Successfully create order from the menu",
			role: middleware.RoleManager,
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"items": []map[string]interface{}{
					{"menu_item_id": bowl.ID, "quantity": 1},
				},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "other", data["channel"])
				item := data["items"].([]interface{})[0].(map[string]interface{})
				assert.Equal(t, "Chicken bowl", item["name"])
				assert.True(t, decimal.RequireFromString("32").Equal(decimal.RequireFromString(data["total"].(string))))
			},
		},
		{
			name: "Fail without items",
			role: middleware.RoleAttendant,
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"items":       []map[string]interface{}{},
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "Fail with zero quantity",
			role: middleware.RoleAttendant,
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"items": []map[string]interface{}{
					{"name": "Juice", "unit_price": "8.50", "quantity": 0},
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "Fail with unknown channel",
			role: middleware.RoleAttendant,
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"channel":     "pigeon",
				"items": []map[string]interface{}{
					{"name": "Juice", "unit_price": "8.50", "quantity": 1},
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "Fail for unknown customer",
			role: middleware.RoleAttendant,
			requestBody: map[string]interface{}{
				"customer_id": "0b1c58de-0d4c-4a45-9ac4-3c7a3bbf5b4e",
				"items": []map[string]interface{}{
					{"name": "Juice", "unit_price": "8.50", "quantity": 1},
				},
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name: "Fail without a role",
			role: "",
			requestBody: map[string]interface{}{
				"customer_id": customer.ID,
				"items": []map[string]interface{}{
					{"name": "Juice", "unit_price": "8.50", "quantity": 1},
				},
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "INSUFFICIENT_ROLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, env.router(tt.role), http.MethodPost, "/api/v1/orders", tt.requestBody)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedCode, errorCode(response))
			}
			if tt.checkResponse != nil {
				assert.True(t, response["success"].(bool))
				tt.checkResponse(t, dataOf(t, response))
			}
		})
	}
}

func TestUpdateOrderStatus_DeliveryRecalculatesCustomer(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(middleware.RoleAttendant)
	customer := testutil.CreateCustomer(t, env.db, "Joana")

	w, response := performRequest(t, router, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id": customer.ID,
		"items":       []map[string]interface{}{{"name": "Bowl", "unit_price": "40", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := dataOf(t, response)["id"].(string)

	// skipping columns is allowed
	w, response = performRequest(t, router, http.MethodPatch, "/api/v1/orders/"+orderID+"/status", map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, dataOf(t, response)["delivered_at"])

	var reloaded models.Customer
	require.NoError(t, env.db.First(&reloaded, "id = ?", customer.ID).Error)
	assert.Equal(t, 1, reloaded.TotalOrders)
	assert.True(t, decimal.NewFromInt(40).Equal(reloaded.TotalValue))

	// no way back
	w, response = performRequest(t, router, http.MethodPatch, "/api/v1/orders/"+orderID+"/status", map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = performRequest(t, router, http.MethodPatch, "/api/v1/orders/"+orderID+"/status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrders_FilterByStatus(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(middleware.RoleAttendant)
	customer := testutil.CreateCustomer(t, env.db, "Maria")
	testutil.CreateDeliveredOrder(t, env.db, customer.ID, "25.00", time.Now())

	w, _ := performRequest(t, router, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id": customer.ID,
		"items":       []map[string]interface{}{{"name": "Bowl", "unit_price": "40", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	_, response := performRequest(t, router, http.MethodGet, "/api/v1/orders", nil)
	assert.Len(t, response["data"], 2)

	_, response = performRequest(t, router, http.MethodGet, "/api/v1/orders?status=delivered", nil)
	assert.Len(t, response["data"], 1)

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/orders?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestGetOrder_NotFoundAndInvalidID(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(middleware.RoleAttendant)

	w, response := performRequest(t, router, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = performRequest(t, router, http.MethodGet, "/api/v1/orders/0b1c58de-0d4c-4a45-9ac4-3c7a3bbf5b4e", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(response))
}

func TestDeleteOrder_RequiresManager(t *testing.T) {
	env := newTestEnv(t)
	customer := testutil.CreateCustomer(t, env.db, "Maria")
	order := testutil.CreateDeliveredOrder(t, env.db, customer.ID, "25.00", time.Now())
	path := "/api/v1/orders/" + order.ID.String()

	w, response := performRequest(t, env.router(middleware.RoleAttendant), http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", errorCode(response))

	w, _ = performRequest(t, env.router(middleware.RoleManager), http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	env.db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count)
	assert.Zero(t, count)
}

func TestGetCustomerOrders_Paginated(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(middleware.RoleAttendant)
	customer := testutil.CreateCustomer(t, env.db, "Maria")
	for i := 0; i < 3; i++ {
		testutil.CreateDeliveredOrder(t, env.db, customer.ID, "10.00", time.Now())
	}

	w, response := performRequest(t, router, http.MethodGet, "/api/v1/customers/"+customer.ID.String()+"/orders?page=1&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, response)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(2), data["size"])
	assert.Len(t, data["items"], 1)

	w, _ = performRequest(t, router, http.MethodGet, "/api/v1/customers/"+customer.ID.String()+"/orders?page=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
