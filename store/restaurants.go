package store

import (
	"context"

	"foodconnect/models"
)

// RestaurantFilter narrows the public and admin listings
type RestaurantFilter struct {
	Search   string
	Cuisine  string
	Featured bool
}

func (s *Store) RestaurantByOwner(ctx context.Context, userID string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&r).Error; err != nil {
		return nil, translate(err, "restaurant for user "+userID)
	}
	return &r, nil
}

func (s *Store) RestaurantByID(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err, "restaurant "+id)
	}
	return &r, nil
}

func (s *Store) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	return translate(s.db.WithContext(ctx).Create(r).Error, "create restaurant")
}

// SaveRestaurant writes every column of r
func (s *Store) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	return translate(s.db.WithContext(ctx).Save(r).Error, "save restaurant")
}

func (s *Store) SetRestaurantFeatured(ctx context.Context, id string, featured bool) (*models.Restaurant, error) {
	res := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", id).Update("featured", featured)
	if res.Error != nil {
		return nil, translate(res.Error, "feature restaurant")
	}
	if res.RowsAffected == 0 {
		return nil, translate(ErrNotFound, "restaurant "+id)
	}
	return s.RestaurantByID(ctx, id)
}

func (s *Store) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	q := s.db.WithContext(ctx).Order("featured desc, name asc")
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}
	if f.Cuisine != "" {
		q = q.Where("cuisine_type LIKE ?", "%"+f.Cuisine+"%")
	}
	if f.Featured {
		q = q.Where("featured = ?", true)
	}
	return restaurants, translate(q.Find(&restaurants).Error, "list restaurants")
}
