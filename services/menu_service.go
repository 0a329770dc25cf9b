package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/telemetry"
)

// MenuRepository is the menu persistence used by MenuService
type MenuRepository interface {
	List(ctx context.Context, active *bool) ([]models.MenuItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MenuItemInput carries the editable fields of a menu item
type MenuItemInput struct {
	Category    models.MenuCategory
	Name        string
	Price       decimal.Decimal
	Description string
	Active      *bool
	Position    int
}

const menuCachePrefix = "menu:"

// MenuService manages the menu behind a read-through cache keyed by the
// active filter. Every write invalidates the whole menu group.
type MenuService struct {
	items   MenuRepository
	cache   Cache
	ttl     time.Duration
	metrics *telemetry.Registry
	logger  logrus.FieldLogger
}

// NewMenuService creates a new MenuService
func NewMenuService(items MenuRepository, cache Cache, ttl time.Duration, metrics *telemetry.Registry, logger logrus.FieldLogger) *MenuService {
	return &MenuService{items: items, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func menuCacheKey(active *bool) string {
	if active == nil {
		return menuCachePrefix + "all"
	}
	return menuCachePrefix + "active:" + strconv.FormatBool(*active)
}

// List returns menu items, optionally filtered by the active flag.
// Cache failures fall back to the database.
func (s *MenuService) List(ctx context.Context, active *bool) ([]models.MenuItem, error) {
	key := menuCacheKey(active)

	var cached []models.MenuItem
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("menu cache read failed")
	}
	s.metrics.ObserveCacheLookup(hit)
	if hit {
		return cached, nil
	}

	items, err := s.items.List(ctx, active)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	if err := s.cache.Set(ctx, key, items, s.ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("menu cache write failed")
	}
	return items, nil
}

// Get returns a menu item by ID
func (s *MenuService) Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	return s.items.Get(ctx, id)
}

// Create adds a menu item
func (s *MenuService) Create(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	item := &models.MenuItem{Active: true}
	if err := applyMenuItem(item, in); err != nil {
		return nil, err
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// Update replaces the editable fields of a menu item
func (s *MenuService) Update(ctx context.Context, id uuid.UUID, in MenuItemInput) (*models.MenuItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyMenuItem(item, in); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// SetActive toggles whether a menu item is offered
func (s *MenuService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.MenuItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Active = active
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// Delete removes a menu item
func (s *MenuService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *MenuService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, menuCachePrefix); err != nil {
		s.logger.WithError(err).Error("menu cache invalidation failed")
	}
}

func applyMenuItem(item *models.MenuItem, in MenuItemInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.Validation("name is required")
	}
	switch in.Category {
	case models.MenuCategoryProtein, models.MenuCategorySalad, models.MenuCategorySide,
		models.MenuCategoryDrink, models.MenuCategoryBowl, models.MenuCategoryDessert:
	default:
		return apperrors.Validationf("invalid menu category %q", in.Category)
	}
	if in.Price.IsNegative() {
		return apperrors.Validation("price must not be negative")
	}

	item.Category = in.Category
	item.Name = name
	item.Price = in.Price.Round(2)
	item.Description = strings.TrimSpace(in.Description)
	item.Position = in.Position
	if in.Active != nil {
		item.Active = *in.Active
	}
	return nil
}
