package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
	"github.com/anacarla/crm-api/tests/testutil"
)

func newTestInteractionService(db *gorm.DB, storage AttachmentStorage) *InteractionService {
	logger, _ := testutil.NewTestLogger()
	s := NewInteractionService(repositories.NewInteractionRepository(db), repositories.NewCustomerRepository(db), storage, logger)
	s.Now = testutil.FixedClock(testNow)
	return s
}

func TestCreateInteraction(t *testing.T) {
	db := testutil.NewTestDB(t)
	customer := testutil.CreateCustomer(t, db, "Maria")
	s := newTestInteractionService(db, NewMockAttachmentStorage())
	ctx := context.Background()

	interaction, err := s.Create(ctx, customer.ID, InteractionInput{Type: models.InteractionWhatsApp, Summary: " asked for the menu ", Author: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "asked for the menu", interaction.Summary)
	assert.True(t, interaction.OccurredAt.Equal(testNow))

	earlier := testNow.Add(-48 * time.Hour)
	_, err = s.Create(ctx, customer.ID, InteractionInput{Type: models.InteractionPhone, OccurredAt: &earlier})
	require.NoError(t, err)

	list, err := s.ListByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.InteractionWhatsApp, list[0].Type, "most recent first")

	_, err = s.Create(ctx, customer.ID, InteractionInput{Type: "pigeon"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.Create(ctx, uuid.New(), InteractionInput{Type: models.InteractionNote})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAttachFile(t *testing.T) {
	db := testutil.NewTestDB(t)
	customer := testutil.CreateCustomer(t, db, "Maria")
	storage := NewMockAttachmentStorage()
	s := newTestInteractionService(db, storage)
	ctx := context.Background()

	interaction, err := s.Create(ctx, customer.ID, InteractionInput{Type: models.InteractionNote})
	require.NoError(t, err)

	attached, err := s.Attach(ctx, interaction.ID, testutil.NewFileHeader(t, "receipt.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	require.NotNil(t, attached.AttachmentKey)
	first := *attached.AttachmentKey
	assert.True(t, strings.HasPrefix(first, "attachments/"+interaction.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(first, ".pdf"))
	require.NotNil(t, attached.AttachmentURL)
	assert.Contains(t, *attached.AttachmentURL, first)
	assert.True(t, storage.FileExists(first))

	// replacing drops the old file
	replaced, err := s.Attach(ctx, interaction.ID, testutil.NewFileHeader(t, "photo.png", []byte("png")))
	require.NoError(t, err)
	assert.False(t, storage.FileExists(first))
	assert.True(t, storage.FileExists(*replaced.AttachmentKey))

	got, err := s.Get(ctx, interaction.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AttachmentURL)
	assert.Equal(t, *replaced.AttachmentKey, *got.AttachmentKey)

	require.NoError(t, s.Delete(ctx, interaction.ID))
	assert.Empty(t, storage.Files())
	_, err = s.Get(ctx, interaction.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAttachFileRejectsBadFormat(t *testing.T) {
	db := testutil.NewTestDB(t)
	customer := testutil.CreateCustomer(t, db, "Maria")
	storage := NewMockAttachmentStorage()
	s := newTestInteractionService(db, storage)
	ctx := context.Background()

	interaction, err := s.Create(ctx, customer.ID, InteractionInput{Type: models.InteractionNote})
	require.NoError(t, err)

	_, err = s.Attach(ctx, interaction.ID, testutil.NewFileHeader(t, "script.exe", []byte("MZ")))
	require.True(t, apperrors.IsValidation(err))
	assert.Equal(t, map[string]string{"file": "INVALID_FILE_FORMAT"}, apperrors.From(err).Details)
	assert.Empty(t, storage.Files())
}

func TestAttachFileStorageFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	customer := testutil.CreateCustomer(t, db, "Maria")
	storage := NewMockAttachmentStorage()
	storage.FailUploads = true
	s := newTestInteractionService(db, storage)
	ctx := context.Background()

	interaction, err := s.Create(ctx, customer.ID, InteractionInput{Type: models.InteractionNote})
	require.NoError(t, err)

	_, err = s.Attach(ctx, interaction.ID, testutil.NewFileHeader(t, "receipt.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, apperrors.ErrTransient)

	got, err := s.Get(ctx, interaction.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AttachmentKey)
}
