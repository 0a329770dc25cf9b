package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/utils"
)

// InteractionRepository is the interaction persistence used by InteractionService
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Interaction, error)
	SetAttachment(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InteractionInput describes a contact with a customer
type InteractionInput struct {
	Type       models.InteractionType
	Summary    string
	Author     string
	OccurredAt *time.Time
}

// InteractionService records contacts with customers and their attachments
type InteractionService struct {
	interactions InteractionRepository
	customers    CustomerGetter
	storage      AttachmentStorage
	logger       logrus.FieldLogger

	Now func() time.Time
}

// NewInteractionService creates a new InteractionService
func NewInteractionService(interactions InteractionRepository, customers CustomerGetter, storage AttachmentStorage, logger logrus.FieldLogger) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		customers:    customers,
		storage:      storage,
		logger:       logger,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create records an interaction. OccurredAt defaults to now.
func (s *InteractionService) Create(ctx context.Context, customerID uuid.UUID, in InteractionInput) (*models.Interaction, error) {
	if !validInteractionType(in.Type) {
		return nil, apperrors.Validationf("invalid interaction type %q", in.Type)
	}
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}

	occurredAt := s.Now().UTC()
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}
	interaction := &models.Interaction{
		CustomerID: customerID,
		Type:       in.Type,
		Summary:    strings.TrimSpace(in.Summary),
		Author:     strings.TrimSpace(in.Author),
		OccurredAt: occurredAt,
	}
	if err := s.interactions.Create(ctx, interaction); err != nil {
		return nil, err
	}
	return interaction, nil
}

// Get returns an interaction with its attachment URL resolved
func (s *InteractionService) Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	interaction, err := s.interactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveURL(ctx, interaction)
	return interaction, nil
}

// ListByCustomer returns the customer's interactions, most recent first
func (s *InteractionService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Interaction, error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	interactions, err := s.interactions.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if interactions == nil {
		interactions = []models.Interaction{}
	}
	for i := range interactions {
		s.resolveURL(ctx, &interactions[i])
	}
	return interactions, nil
}

// Attach validates and stores a file for the interaction, replacing any
// previous attachment.
func (s *InteractionService) Attach(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*models.Interaction, error) {
	interaction, err := s.interactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateAttachment(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, apperrors.Validation(uploadErr.Message).WithDetails(map[string]string{"file": uploadErr.Code})
		}
		return nil, apperrors.Validation(err.Error())
	}

	key, err := s.storage.Upload(ctx, id.String(), fileHeader)
	if err != nil {
		return nil, apperrors.Transient("upload attachment", err)
	}
	if err := s.interactions.SetAttachment(ctx, id, key); err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, err
	}

	if interaction.AttachmentKey != nil {
		if err := s.storage.Delete(ctx, *interaction.AttachmentKey); err != nil {
			s.logger.WithError(err).WithField("key", *interaction.AttachmentKey).Warn("failed to delete replaced attachment")
		}
	}

	interaction.AttachmentKey = &key
	s.resolveURL(ctx, interaction)
	return interaction, nil
}

// Delete removes an interaction and its attachment
func (s *InteractionService) Delete(ctx context.Context, id uuid.UUID) error {
	interaction, err := s.interactions.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.interactions.Delete(ctx, id); err != nil {
		return err
	}
	if interaction.AttachmentKey != nil {
		if err := s.storage.Delete(ctx, *interaction.AttachmentKey); err != nil {
			s.logger.WithError(err).WithField("key", *interaction.AttachmentKey).Warn("failed to delete attachment")
		}
	}
	return nil
}

// resolveURL fills AttachmentURL; a storage failure leaves it empty
func (s *InteractionService) resolveURL(ctx context.Context, interaction *models.Interaction) {
	if interaction.AttachmentKey == nil {
		return
	}
	url, err := s.storage.URL(ctx, *interaction.AttachmentKey)
	if err != nil {
		s.logger.WithError(err).WithField("interaction_id", interaction.ID).Warn("failed to resolve attachment URL")
		return
	}
	interaction.AttachmentURL = &url
}

func validInteractionType(t models.InteractionType) bool {
	switch t {
	case models.InteractionWhatsApp, models.InteractionPhone, models.InteractionEmail,
		models.InteractionInPerson, models.InteractionNote:
		return true
	}
	return false
}
