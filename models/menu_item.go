package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuCategory groups menu items
type MenuCategory string

const (
	MenuCategoryProtein MenuCategory = "protein"
	MenuCategorySalad   MenuCategory = "salad"
	MenuCategorySide    MenuCategory = "side"
	MenuCategoryDrink   MenuCategory = "drink"
	MenuCategoryBowl    MenuCategory = "bowl"
	MenuCategoryDessert MenuCategory = "dessert"
)

// MenuItem represents a dish or drink on the menu
type MenuItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Category    MenuCategory    `gorm:"size:50;not null;index" json:"category"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Active      bool            `gorm:"not null;index" json:"active"`
	Position    int             `gorm:"not null;default:0;index" json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new menu item
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}
