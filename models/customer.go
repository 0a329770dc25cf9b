package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer represents a customer of the delivery business together with the
// purchase metrics materialized from their delivered orders.
type Customer struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string            `gorm:"size:200;not null" json:"name"`
	Phones             []string          `gorm:"type:text;serializer:json" json:"phones"` // E.164 numbers
	Email              *string           `gorm:"size:200;uniqueIndex" json:"email,omitempty"`
	Address            string            `gorm:"size:500" json:"address,omitempty"`
	BirthDate          *time.Time        `json:"birth_date,omitempty"`
	TaxID              *string           `gorm:"size:20;uniqueIndex" json:"tax_id,omitempty"` // CPF/CNPJ
	MarketingConsent   bool              `gorm:"not null;default:false" json:"marketing_consent"`
	AcquisitionChannel string            `gorm:"size:50" json:"acquisition_channel,omitempty"`
	ContactPreferences datatypes.JSONMap `json:"contact_preferences,omitempty"`
	DietaryNotes       datatypes.JSONMap `json:"dietary_notes,omitempty"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty"`
	Active             bool              `gorm:"not null;index" json:"active"`

	// Materialized metrics, written only by the metrics recalculator.
	TotalOrders               int             `gorm:"not null;default:0" json:"total_orders"`
	AverageTicket             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"average_ticket"`
	TotalValue                decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_value"`
	LastPurchaseAt            *time.Time      `json:"last_purchase_at"`
	RecencyDays               *int            `gorm:"index" json:"recency_days"`
	AvgRepurchaseIntervalDays *int            `json:"avg_repurchase_interval_days"`
	LTV                       decimal.Decimal `gorm:"column:ltv;type:decimal(12,2);not null;default:0" json:"ltv"`
	RFM                       *RFMScore       `gorm:"column:rfm;type:text;serializer:json" json:"rfm"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new customer
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// ResetMetrics puts every materialized metric back to its zero value.
func (c *Customer) ResetMetrics() {
	c.TotalOrders = 0
	c.TotalValue = decimal.Zero
	c.AverageTicket = decimal.Zero
	c.LastPurchaseAt = nil
	c.RecencyDays = nil
	c.AvgRepurchaseIntervalDays = nil
	c.LTV = decimal.Zero
	c.RFM = nil
}

// ProfileColumns lists the columns a profile update is allowed to write.
// Metrics columns are never part of it.
var ProfileColumns = []string{
	"name", "phones", "email", "address", "birth_date", "tax_id",
	"marketing_consent", "acquisition_channel", "contact_preferences",
	"dietary_notes", "notes", "active",
}

// MetricsColumns lists the columns owned by the metrics recalculator.
var MetricsColumns = []string{
	"total_orders", "average_ticket", "total_value", "last_purchase_at",
	"recency_days", "avg_repurchase_interval_days", "ltv", "rfm",
}

// CustomerMetrics is the read model returned by the metrics endpoint.
type CustomerMetrics struct {
	CustomerID                uuid.UUID       `json:"customer_id"`
	TotalOrders               int             `json:"total_orders"`
	AverageTicket             decimal.Decimal `json:"average_ticket"`
	TotalValue                decimal.Decimal `json:"total_value"`
	LastPurchaseAt            *time.Time      `json:"last_purchase_at"`
	RecencyDays               *int            `json:"recency_days"`
	AvgRepurchaseIntervalDays *int            `json:"avg_repurchase_interval_days"`
	LTV                       decimal.Decimal `json:"ltv"`
	RFM                       *RFMScore       `json:"rfm"`
}

// Metrics returns the metrics block of the customer.
func (c *Customer) Metrics() CustomerMetrics {
	return CustomerMetrics{
		CustomerID:                c.ID,
		TotalOrders:               c.TotalOrders,
		AverageTicket:             c.AverageTicket,
		TotalValue:                c.TotalValue,
		LastPurchaseAt:            c.LastPurchaseAt,
		RecencyDays:               c.RecencyDays,
		AvgRepurchaseIntervalDays: c.AvgRepurchaseIntervalDays,
		LTV:                       c.LTV,
		RFM:                       c.RFM,
	}
}
