package dataaccess

import (
	"context"
	"strings"

	"foodconnect/models"
	"foodconnect/querycache"
)

type VendorProfileInput struct {
	BusinessName string  `json:"business_name" form:"business_name"`
	Description  *string `json:"description" form:"description"`
	LogoURL      *string `json:"logo_url" form:"logo_url"`
	ContactEmail *string `json:"contact_email" form:"contact_email"`
	ContactPhone *string `json:"contact_phone" form:"contact_phone"`
	Address      *string `json:"address" form:"address"`
	Website      *string `json:"website" form:"website"`
}

type VendorProfiles struct {
	base
}

func NewVendorProfiles(d Deps) *VendorProfiles {
	return &VendorProfiles{base{d}}
}

// Get returns nil for an empty id or a vendor that has not set up a profile
func (p *VendorProfiles) Get(ctx context.Context, vendorID string) (*models.VendorProfile, error) {
	if vendorID == "" {
		return nil, nil
	}
	return querycache.Fetch(ctx, p.Cache, querycache.Key("vendor-profile", vendorID), func(ctx context.Context) (*models.VendorProfile, error) {
		return notFoundAsNil(p.Store.VendorProfile(ctx, vendorID))
	})
}

// Create is lookup-or-create, like restaurants
func (p *VendorProfiles) Create(ctx context.Context, vendorID string, in VendorProfileInput, logo *Image) (*models.VendorProfile, bool, error) {
	const msg = "Failed to create vendor profile"

	existing, err := notFoundAsNil(p.Store.VendorProfile(ctx, vendorID))
	if err != nil {
		return nil, false, p.fail(msg, err, "vendor_id", vendorID)
	}
	if existing != nil {
		return existing, false, nil
	}
	if strings.TrimSpace(in.BusinessName) == "" {
		return nil, false, p.fail(msg, ErrNameRequired, "vendor_id", vendorID)
	}

	profile := &models.VendorProfile{ID: vendorID}
	applyProfile(profile, in)
	if logo != nil {
		url, err := uploadImage(ctx, p.Images, BucketVendorLogos, vendorID, logo)
		if err != nil {
			return nil, false, p.fail("Failed to upload logo", err, "vendor_id", vendorID)
		}
		profile.LogoURL = &url
	}

	if err := p.Store.CreateVendorProfile(ctx, profile); err != nil {
		if logo != nil {
			removeImage(ctx, p.Images, p.Log, BucketVendorLogos, profile.LogoURL)
		}
		return nil, false, p.fail(msg, err, "vendor_id", vendorID)
	}
	p.invalidate(ctx, querycache.Key("vendor-profile", vendorID))
	return profile, true, nil
}

func (p *VendorProfiles) Update(ctx context.Context, vendorID string, in VendorProfileInput, logo *Image) (*models.VendorProfile, error) {
	const msg = "Failed to update vendor profile"

	profile, err := p.Store.VendorProfile(ctx, vendorID)
	if err != nil {
		return nil, p.fail(msg, err, "vendor_id", vendorID)
	}
	if strings.TrimSpace(in.BusinessName) == "" {
		return nil, p.fail(msg, ErrNameRequired, "vendor_id", vendorID)
	}

	previousLogo := profile.LogoURL
	applyProfile(profile, in)
	if logo != nil {
		url, err := uploadImage(ctx, p.Images, BucketVendorLogos, vendorID, logo)
		if err != nil {
			return nil, p.fail("Failed to upload logo", err, "vendor_id", vendorID)
		}
		profile.LogoURL = &url
	}

	if err := p.Store.SaveVendorProfile(ctx, profile); err != nil {
		return nil, p.fail(msg, err, "vendor_id", vendorID)
	}
	if previousLogo != nil && (profile.LogoURL == nil || *previousLogo != *profile.LogoURL) {
		removeImage(ctx, p.Images, p.Log, BucketVendorLogos, previousLogo)
	}

	p.invalidate(ctx, querycache.Key("vendor-profile", vendorID))
	return profile, nil
}

func applyProfile(p *models.VendorProfile, in VendorProfileInput) {
	p.BusinessName = strings.TrimSpace(in.BusinessName)
	p.Description = in.Description
	if in.LogoURL != nil {
		p.LogoURL = in.LogoURL
	}
	p.ContactEmail = in.ContactEmail
	p.ContactPhone = in.ContactPhone
	p.Address = in.Address
	p.Website = in.Website
}
