package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
)

// MenuRepository handles database operations for menu items
type MenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a new MenuRepository
func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// List returns menu items by category and position, optionally filtered by active flag
func (r *MenuRepository) List(ctx context.Context, active *bool) ([]models.MenuItem, error) {
	q := conn(ctx, r.db)
	if active != nil {
		q = q.Where("active = ?", *active)
	}
	var items []models.MenuItem
	if err := q.Order("category ASC, position ASC, name ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Transient("list menu items", err)
	}
	return items, nil
}

// Get retrieves a menu item by its ID
func (r *MenuRepository) Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := conn(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, dbError("get menu item", "menu item", id, err)
	}
	return &item, nil
}

// Create inserts a new menu item
func (r *MenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if err := conn(ctx, r.db).Create(item).Error; err != nil {
		return apperrors.Transient("create menu item", err)
	}
	return nil
}

// Update writes every editable column of item
func (r *MenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	err := conn(ctx, r.db).Model(item).
		Select("category", "name", "price", "description", "active", "position", "updated_at").
		Updates(item).Error
	if err != nil {
		return apperrors.Transient("update menu item", err)
	}
	return nil
}

// Delete removes a menu item
func (r *MenuRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.MenuItem{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Transient("delete menu item", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("menu item", id)
	}
	return nil
}
