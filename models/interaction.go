package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionType is the contact channel of an interaction
type InteractionType string

const (
	InteractionWhatsApp InteractionType = "whatsapp"
	InteractionPhone    InteractionType = "phone"
	InteractionEmail    InteractionType = "email"
	InteractionInPerson InteractionType = "in_person"
	InteractionNote     InteractionType = "note"
)

// Interaction records a contact with a customer
type Interaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	Type          InteractionType `gorm:"size:50;not null;index" json:"type"`
	Summary       string          `gorm:"type:text" json:"summary,omitempty"`
	AttachmentKey *string         `gorm:"size:500" json:"attachment_key,omitempty"` // storage key of the uploaded file
	AttachmentURL *string         `gorm:"-" json:"attachment_url,omitempty"`        // computed on read
	Author        string          `gorm:"size:100" json:"author,omitempty"`
	OccurredAt    time.Time       `gorm:"not null;index" json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new interaction
func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Interaction model
func (Interaction) TableName() string {
	return "interactions"
}
