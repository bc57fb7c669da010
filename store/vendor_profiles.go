package store

import (
	"context"

	"foodconnect/models"
)

func (s *Store) VendorProfile(ctx context.Context, id string) (*models.VendorProfile, error) {
	var p models.VendorProfile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "vendor profile "+id)
	}
	return &p, nil
}

func (s *Store) CreateVendorProfile(ctx context.Context, p *models.VendorProfile) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "create vendor profile")
}

func (s *Store) SaveVendorProfile(ctx context.Context, p *models.VendorProfile) error {
	return translate(s.db.WithContext(ctx).Save(p).Error, "save vendor profile")
}
