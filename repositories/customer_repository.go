package repositories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
)

// CustomerRepository handles database operations for customers
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Get retrieves a customer by its ID
func (r *CustomerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := conn(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, dbError("get customer", "customer", id, err)
	}
	return &customer, nil
}

// Create inserts a new customer with zeroed metrics
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	customer.ResetMetrics()
	if err := conn(ctx, r.db).Create(customer).Error; err != nil {
		return apperrors.Transient("create customer", err)
	}
	return nil
}

// UpdateProfile writes the profile columns of an existing customer.
// Metrics columns are never touched.
func (r *CustomerRepository) UpdateProfile(ctx context.Context, customer *models.Customer) error {
	columns := append(append([]string{}, models.ProfileColumns...), "updated_at")
	if err := conn(ctx, r.db).Model(customer).Select(columns).Updates(customer).Error; err != nil {
		return apperrors.Transient("update customer", err)
	}
	return nil
}

// SaveMetrics writes the metrics columns of customer in a single statement
func (r *CustomerRepository) SaveMetrics(ctx context.Context, customer *models.Customer) error {
	columns := append(append([]string{}, models.MetricsColumns...), "updated_at")
	if err := conn(ctx, r.db).Model(customer).Select(columns).Updates(customer).Error; err != nil {
		return apperrors.Transient("save customer metrics", err)
	}
	return nil
}

// AverageInterval returns the mean repurchase interval over active customers
// that have one, or nil when none do.
func (r *CustomerRepository) AverageInterval(ctx context.Context) (*float64, error) {
	var avg sql.NullFloat64
	err := conn(ctx, r.db).Model(&models.Customer{}).
		Select("AVG(avg_repurchase_interval_days)").
		Where("active = ? AND avg_repurchase_interval_days IS NOT NULL", true).
		Row().Scan(&avg)
	if err != nil {
		return nil, apperrors.Transient("average repurchase interval", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// FindWithRecencyAbove returns active customers whose recency exceeds threshold days
func (r *CustomerRepository) FindWithRecencyAbove(ctx context.Context, threshold int) ([]models.Customer, error) {
	var customers []models.Customer
	err := conn(ctx, r.db).
		Where("active = ? AND recency_days IS NOT NULL AND recency_days > ?", true, threshold).
		Order("recency_days DESC").
		Find(&customers).Error
	if err != nil {
		return nil, apperrors.Transient("find customers by recency", err)
	}
	return customers, nil
}

// Search returns active customers whose name, email or phone contains query
func (r *CustomerRepository) Search(ctx context.Context, query string, page Page) ([]models.Customer, int64, error) {
	page = page.Normalize()
	q := conn(ctx, r.db).Model(&models.Customer{}).Where("active = ?", true)
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phones LIKE ?", like, like, "%"+query+"%")
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Transient("count customers", err)
	}

	var customers []models.Customer
	if err := q.Order("name ASC").Offset(page.offset()).Limit(page.Size).Find(&customers).Error; err != nil {
		return nil, 0, apperrors.Transient("search customers", err)
	}
	return customers, total, nil
}

// ListActive returns every active customer ordered by name
func (r *CustomerRepository) ListActive(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := conn(ctx, r.db).Where("active = ?", true).Order("name ASC").Find(&customers).Error; err != nil {
		return nil, apperrors.Transient("list customers", err)
	}
	return customers, nil
}

// EmailTaken reports whether another customer already uses email
func (r *CustomerRepository) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	return r.exists(ctx, "email = ? AND id <> ?", email, excludeID)
}

// TaxIDTaken reports whether another customer already uses taxID
func (r *CustomerRepository) TaxIDTaken(ctx context.Context, taxID string, excludeID uuid.UUID) (bool, error) {
	return r.exists(ctx, "tax_id = ? AND id <> ?", taxID, excludeID)
}

func (r *CustomerRepository) exists(ctx context.Context, where string, args ...any) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Customer{}).Where(where, args...).Count(&count).Error; err != nil {
		return false, apperrors.Transient("check customer uniqueness", err)
	}
	return count > 0, nil
}

// Deactivate marks the customer inactive
func (r *CustomerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := conn(ctx, r.db).Model(&models.Customer{}).Where("id = ?", id).Update("active", false).Error
	if err != nil {
		return apperrors.Transient("deactivate customer", err)
	}
	return nil
}

// Delete removes the customer row together with its tasks and interactions.
// Callers run it inside a transaction.
func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("customer_id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return apperrors.Transient("delete customer tasks", err)
	}
	if err := db.Where("customer_id = ?", id).Delete(&models.Interaction{}).Error; err != nil {
		return apperrors.Transient("delete customer interactions", err)
	}
	result := db.Delete(&models.Customer{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Transient("delete customer", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("customer", id)
	}
	return nil
}
