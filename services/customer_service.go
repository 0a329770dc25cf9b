package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
)

// CustomerRepository is the customer persistence used by CustomerService
type CustomerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	UpdateProfile(ctx context.Context, customer *models.Customer) error
	Search(ctx context.Context, query string, page repositories.Page) ([]models.Customer, int64, error)
	ListActive(ctx context.Context) ([]models.Customer, error)
	EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	TaxIDTaken(ctx context.Context, taxID string, excludeID uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CustomerInput carries the editable profile of a customer
type CustomerInput struct {
	Name               string
	Phones             []string
	Email              string
	Address            string
	BirthDate          *time.Time
	TaxID              string
	MarketingConsent   bool
	AcquisitionChannel string
	ContactPreferences map[string]any
	DietaryNotes       map[string]any
	Notes              string
	Active             *bool
}

// CustomerService manages customer profiles. It never writes metrics.
type CustomerService struct {
	customers   CustomerRepository
	orders      OrderStore
	tx          TxRunner
	phoneRegion string
	logger      logrus.FieldLogger
}

// NewCustomerService creates a new CustomerService. phoneRegion is the ISO
// region used for numbers written without a country code.
func NewCustomerService(customers CustomerRepository, orders OrderStore, tx TxRunner, phoneRegion string, logger logrus.FieldLogger) *CustomerService {
	return &CustomerService{
		customers:   customers,
		orders:      orders,
		tx:          tx,
		phoneRegion: phoneRegion,
		logger:      logger,
	}
}

// Search returns active customers matching query by name, email or phone
func (s *CustomerService) Search(ctx context.Context, query string, page repositories.Page) (PageResult[models.Customer], error) {
	customers, total, err := s.customers.Search(ctx, query, page)
	if err != nil {
		return PageResult[models.Customer]{}, err
	}
	return newPageResult(customers, total, page), nil
}

// Get returns a customer by ID
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.customers.Get(ctx, id)
}

// Create validates and stores a new customer with zeroed metrics
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	customer := &models.Customer{Active: true}
	if err := s.applyProfile(customer, in); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkUnique(ctx, customer); err != nil {
			return err
		}
		return s.customers.Create(ctx, customer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("customer_id", customer.ID).Info("customer created")
	return customer, nil
}

// Update replaces the profile of a customer. Metrics are left untouched.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, in CustomerInput) (*models.Customer, error) {
	var customer *models.Customer
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.applyProfile(c, in); err != nil {
			return err
		}
		if err := s.checkUnique(ctx, c); err != nil {
			return err
		}
		if err := s.customers.UpdateProfile(ctx, c); err != nil {
			return err
		}
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// Metrics returns the materialized metrics of a customer
func (s *CustomerService) Metrics(ctx context.Context, id uuid.UUID) (*models.CustomerMetrics, error) {
	customer, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m := customer.Metrics()
	return &m, nil
}

// Delete removes a customer. Customers with any order are only deactivated;
// the returned flag reports which happened.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) (deactivated bool, err error) {
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.Get(ctx, id); err != nil {
			return err
		}
		hasOrders, err := s.orders.ExistsOrdersForCustomer(ctx, id)
		if err != nil {
			return err
		}
		if hasOrders {
			deactivated = true
			return s.customers.Deactivate(ctx, id)
		}
		return s.customers.Delete(ctx, id)
	})
	if err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{"customer_id": id, "deactivated": deactivated}).Info("customer removed")
	return deactivated, nil
}

var exportHeadings = []string{
	"Name", "Email", "Phones", "Total orders", "Total value", "Average ticket",
	"Last purchase", "Recency (days)", "Avg interval (days)", "LTV", "R", "F", "M", "Cluster",
}

// ExportMetrics writes an XLSX sheet with the metrics of every active customer
func (s *CustomerService) ExportMetrics(ctx context.Context, w io.Writer) error {
	customers, err := s.customers.ListActive(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Customers"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return apperrors.Internal(err)
	}

	header := make([]any, len(exportHeadings))
	for i, h := range exportHeadings {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return apperrors.Internal(err)
	}

	for i, c := range customers {
		row := exportRow(&c)
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return apperrors.Internal(err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func exportRow(c *models.Customer) []any {
	email := ""
	if c.Email != nil {
		email = *c.Email
	}
	lastPurchase := ""
	if c.LastPurchaseAt != nil {
		lastPurchase = c.LastPurchaseAt.UTC().Format("2006-01-02")
	}
	row := []any{
		c.Name,
		email,
		strings.Join(c.Phones, ", "),
		c.TotalOrders,
		c.TotalValue.InexactFloat64(),
		c.AverageTicket.InexactFloat64(),
		lastPurchase,
		optionalInt(c.RecencyDays),
		optionalInt(c.AvgRepurchaseIntervalDays),
		c.LTV.InexactFloat64(),
	}
	if c.RFM != nil {
		row = append(row, c.RFM.R, c.RFM.F, c.RFM.M, c.RFM.Cluster)
	} else {
		row = append(row, "", "", "", "")
	}
	return row
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func (s *CustomerService) applyProfile(c *models.Customer, in CustomerInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.Validation("name is required")
	}

	phones, err := NormalizePhones(in.Phones, s.phoneRegion)
	if err != nil {
		return err
	}

	c.Name = name
	c.Phones = phones
	c.Email = optionalString(strings.ToLower(in.Email))
	c.Address = strings.TrimSpace(in.Address)
	c.BirthDate = in.BirthDate
	c.TaxID = optionalString(digitsOnly(in.TaxID))
	c.MarketingConsent = in.MarketingConsent
	c.AcquisitionChannel = strings.TrimSpace(in.AcquisitionChannel)
	c.ContactPreferences = jsonMap(in.ContactPreferences)
	c.DietaryNotes = jsonMap(in.DietaryNotes)
	c.Notes = strings.TrimSpace(in.Notes)
	if in.Active != nil {
		c.Active = *in.Active
	}
	return nil
}

func (s *CustomerService) checkUnique(ctx context.Context, c *models.Customer) error {
	if c.Email != nil {
		taken, err := s.customers.EmailTaken(ctx, *c.Email, c.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict("email already registered").WithDetails(map[string]string{"email": *c.Email})
		}
	}
	if c.TaxID != nil {
		taken, err := s.customers.TaxIDTaken(ctx, *c.TaxID, c.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict("tax id already registered")
		}
	}
	return nil
}

// NormalizePhones parses every number for region and returns them in E.164,
// dropping blanks and duplicates.
func NormalizePhones(phones []string, region string) ([]string, error) {
	out := make([]string, 0, len(phones))
	seen := make(map[string]bool, len(phones))
	for _, raw := range phones {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := libphonenumber.Parse(raw, region)
		if err != nil || !libphonenumber.IsValidNumber(p) {
			return nil, apperrors.Validationf("invalid phone number %q", raw).
				WithDetails(map[string]string{"phones": raw})
		}
		e164 := libphonenumber.Format(p, libphonenumber.E164)
		if !seen[e164] {
			seen[e164] = true
			out = append(out, e164)
		}
	}
	return out, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func jsonMap(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}
