package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/services"
)

// CustomerRequest represents the request body for creating or updating a customer
type CustomerRequest struct {
	Name               string         `json:"name" binding:"required,max=200"`
	Phones             []string       `json:"phones" binding:"omitempty,max=10,dive,max=30"`
	Email              string         `json:"email" binding:"omitempty,email,max=200"`
	Address            string         `json:"address" binding:"max=500"`
	BirthDate          string         `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	TaxID              string         `json:"tax_id" binding:"max=20"`
	MarketingConsent   bool           `json:"marketing_consent"`
	AcquisitionChannel string         `json:"acquisition_channel" binding:"max=50"`
	ContactPreferences map[string]any `json:"contact_preferences"`
	DietaryNotes       map[string]any `json:"dietary_notes"`
	Notes              string         `json:"notes"`
	Active             *bool          `json:"active"`
}

func (r CustomerRequest) input() services.CustomerInput {
	in := services.CustomerInput{
		Name:               r.Name,
		Phones:             r.Phones,
		Email:              r.Email,
		Address:            r.Address,
		TaxID:              r.TaxID,
		MarketingConsent:   r.MarketingConsent,
		AcquisitionChannel: r.AcquisitionChannel,
		ContactPreferences: r.ContactPreferences,
		DietaryNotes:       r.DietaryNotes,
		Notes:              r.Notes,
		Active:             r.Active,
	}
	if r.BirthDate != "" {
		// format already checked by binding
		if d, err := time.Parse("2006-01-02", r.BirthDate); err == nil {
			in.BirthDate = &d
		}
	}
	return in
}

// CustomerController serves customer profiles and their metrics
type CustomerController struct {
	customers *services.CustomerService
	recalc    services.Recalculator
}

// NewCustomerController creates a new CustomerController
func NewCustomerController(customers *services.CustomerService, recalc services.Recalculator) *CustomerController {
	return &CustomerController{customers: customers, recalc: recalc}
}

// SearchCustomers handles GET /api/v1/customers - searches active customers by name, email or phone
func (h *CustomerController) SearchCustomers(c *gin.Context) {
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	result, err := h.customers.Search(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// CreateCustomer handles POST /api/v1/customers - creates a new customer
func (h *CustomerController) CreateCustomer(c *gin.Context) {
	var req CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, customer)
}

// GetCustomer handles GET /api/v1/customers/:id
func (h *CustomerController) GetCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /api/v1/customers/:id - replaces the profile, never the metrics
func (h *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/v1/customers/:id - customers with orders are deactivated instead
func (h *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	deactivated, err := h.customers.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deactivated": deactivated})
}

// GetCustomerMetrics handles GET /api/v1/customers/:id/metrics
func (h *CustomerController) GetCustomerMetrics(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	metrics, err := h.customers.Metrics(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, metrics)
}

// RecalculateCustomerMetrics handles POST /api/v1/customers/:id/metrics/recalculate
func (h *CustomerController) RecalculateCustomerMetrics(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.recalc.Recalculate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customer.Metrics())
}

// ExportCustomers handles GET /api/v1/customers/export - downloads customer metrics as XLSX
func (h *CustomerController) ExportCustomers(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.customers.ExportMetrics(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("customers-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
