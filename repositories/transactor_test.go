package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/tests/testutil"
)

func TestAfterTransactionRunsOnceOuterTransactionCommits(t *testing.T) {
	db := testutil.NewTestDB(t)
	transactor := NewTransactor(db)
	customers := NewCustomerRepository(db)

	var events []string
	err := transactor.WithinTransaction(context.Background(), func(ctx context.Context) error {
		// nested calls join the outer transaction
		return transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			transactor.AfterTransaction(ctx, func() {
				var count int64
				require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
				events = append(events, "first")
				assert.Equal(t, int64(1), count)
			})
			transactor.AfterTransaction(ctx, func() { events = append(events, "second") })

			events = append(events, "write")
			return customers.Create(ctx, &models.Customer{Name: "Maria", Active: true})
		})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"write", "first", "second"}, events)
}

func TestAfterTransactionRunsOnRollback(t *testing.T) {
	db := testutil.NewTestDB(t)
	transactor := NewTransactor(db)

	ran := false
	boom := errors.New("boom")
	err := transactor.WithinTransaction(context.Background(), func(ctx context.Context) error {
		transactor.AfterTransaction(ctx, func() { ran = true })
		assert.False(t, ran)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestAfterTransactionWithoutTransactionRunsImmediately(t *testing.T) {
	transactor := NewTransactor(testutil.NewTestDB(t))

	ran := false
	transactor.AfterTransaction(context.Background(), func() { ran = true })

	assert.True(t, ran)
}
