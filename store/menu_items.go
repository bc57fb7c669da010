package store

import (
	"context"

	"foodconnect/models"
)

// MenuFilter narrows a restaurant's menu listing
type MenuFilter struct {
	Category      string
	AvailableOnly bool
}

func (s *Store) MenuItems(ctx context.Context, restaurantID string, f MenuFilter) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	q := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	err := q.Order("created_at desc").Find(&items).Error
	return items, translate(err, "list menu items")
}

// MenuItem loads one item owned by vendorID
func (s *Store) MenuItem(ctx context.Context, vendorID, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.WithContext(ctx).Where("id = ? AND vendor_id = ?", id, vendorID).First(&item).Error
	if err != nil {
		return nil, translate(err, "menu item "+id)
	}
	return &item, nil
}

func (s *Store) MenuItemsByID(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	err := s.db.WithContext(ctx).Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&items).Error
	return items, translate(err, "menu items by id")
}

func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return translate(s.db.WithContext(ctx).Create(item).Error, "create menu item")
}

func (s *Store) SaveMenuItem(ctx context.Context, item *models.MenuItem) error {
	return translate(s.db.WithContext(ctx).Save(item).Error, "save menu item")
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, vendorID, id string, available bool) (*models.MenuItem, error) {
	res := s.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		Update("is_available", available)
	if res.Error != nil {
		return nil, translate(res.Error, "toggle menu item")
	}
	if res.RowsAffected == 0 {
		return nil, translate(ErrNotFound, "menu item "+id)
	}
	return s.MenuItem(ctx, vendorID, id)
}

func (s *Store) DeleteMenuItem(ctx context.Context, vendorID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND vendor_id = ?", id, vendorID).Delete(&models.MenuItem{})
	if res.Error != nil {
		return translate(res.Error, "delete menu item")
	}
	if res.RowsAffected == 0 {
		return translate(ErrNotFound, "menu item "+id)
	}
	return nil
}
