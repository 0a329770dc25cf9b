package testutil

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anacarla/crm-api/config"
	"github.com/anacarla/crm-api/models"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// CheckTestEnvironment is the TestMain variant of RequireTestEnvironment.
// It prints a banner and exits when GO_ENV is not "test".
func CheckTestEnvironment() {
	env := os.Getenv("GO_ENV")
	if env == "test" {
		return
	}
	fmt.Fprintf(os.Stderr, "\nSAFETY CHECK FAILED: tests must run with GO_ENV=test (current %q).\n"+
		"Run them with:  GO_ENV=test go test ./...\n\n", env)
	os.Exit(1)
}

// NewTestDB opens a migrated in-memory SQLite database.
// The pool is pinned to one connection since every :memory: connection is
// its own database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// NewTestLogger returns a logger whose entries are captured by the hook
func NewTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// FixedClock returns a clock that always reports now
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// CreateCustomer inserts an active customer with the given name
func CreateCustomer(t *testing.T, db *gorm.DB, name string) *models.Customer {
	t.Helper()

	customer := &models.Customer{Name: name, Active: true, Phones: []string{}}
	require.NoError(t, db.WithContext(context.Background()).Create(customer).Error)
	return customer
}

// CreateDeliveredOrder inserts a delivered order with a single item priced total
func CreateDeliveredOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, total string, deliveredAt time.Time) *models.Order {
	t.Helper()

	price := decimal.RequireFromString(total)
	delivered := deliveredAt.UTC()
	order := &models.Order{
		CustomerID:  customerID,
		Status:      models.OrderStatusDelivered,
		Channel:     models.OrderChannelWhatsApp,
		Total:       price,
		DeliveredAt: &delivered,
		Items: []models.OrderItem{
			{Name: "Bowl", UnitPrice: price, Quantity: 1},
		},
	}
	require.NoError(t, db.Omit("Customer").Create(order).Error)
	return order
}

// SetCustomerMetrics writes recency and interval directly, bypassing the recalculator
func SetCustomerMetrics(t *testing.T, db *gorm.DB, customerID uuid.UUID, recency, interval *int) {
	t.Helper()

	err := db.Model(&models.Customer{}).Where("id = ?", customerID).
		Updates(map[string]any{"recency_days": recency, "avg_repurchase_interval_days": interval}).Error
	require.NoError(t, err)
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// NewFileHeader builds a multipart file header holding content, as gin
// would hand it to a handler.
func NewFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.NotEmpty(t, form.File["file"])
	return form.File["file"][0]
}

// CreateMenuItem inserts an active menu item
func CreateMenuItem(t *testing.T, db *gorm.DB, name, price string) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{
		Category: models.MenuCategoryBowl,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Active:   true,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}
