package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
)

// InteractionRepository handles database operations for interactions
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new InteractionRepository
func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create inserts a new interaction
func (r *InteractionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	if err := conn(ctx, r.db).Omit("Customer").Create(interaction).Error; err != nil {
		return apperrors.Transient("create interaction", err)
	}
	return nil
}

// Get retrieves an interaction by its ID
func (r *InteractionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	var interaction models.Interaction
	if err := conn(ctx, r.db).First(&interaction, "id = ?", id).Error; err != nil {
		return nil, dbError("get interaction", "interaction", id, err)
	}
	return &interaction, nil
}

// ListByCustomer returns the customer's interactions, most recent first
func (r *InteractionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Interaction, error) {
	var interactions []models.Interaction
	err := conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("occurred_at DESC").
		Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Transient("list interactions", err)
	}
	return interactions, nil
}

// SetAttachment records the storage key of the interaction's attachment
func (r *InteractionRepository) SetAttachment(ctx context.Context, id uuid.UUID, key string) error {
	err := conn(ctx, r.db).Model(&models.Interaction{}).Where("id = ?", id).Update("attachment_key", key).Error
	if err != nil {
		return apperrors.Transient("set interaction attachment", err)
	}
	return nil
}

// Delete removes an interaction
func (r *InteractionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.Interaction{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Transient("delete interaction", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("interaction", id)
	}
	return nil
}
