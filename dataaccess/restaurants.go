package dataaccess

import (
	"context"
	"fmt"
	"strings"

	"foodconnect/models"
	"foodconnect/querycache"
	"foodconnect/store"

	"github.com/google/uuid"
)

// RestaurantInput is what a vendor may set on their storefront
type RestaurantInput struct {
	Name         string `json:"name" form:"name"`
	CuisineType  string `json:"cuisine_type" form:"cuisine_type"`
	Image        string `json:"image" form:"image_url"`
	DeliveryTime string `json:"delivery_time" form:"delivery_time"`
	DeliveryFee  string `json:"delivery_fee" form:"delivery_fee"`
	Address      string `json:"address" form:"address"`
}

type Restaurants struct {
	base
}

func NewRestaurants(d Deps) *Restaurants {
	return &Restaurants{base{d}}
}

// Get returns the vendor's restaurant, or nil if userID is empty or none exists yet
func (r *Restaurants) Get(ctx context.Context, userID string) (*models.Restaurant, error) {
	if userID == "" {
		return nil, nil
	}
	return querycache.Fetch(ctx, r.Cache, querycache.Key("restaurant", userID), func(ctx context.Context) (*models.Restaurant, error) {
		return notFoundAsNil(r.Store.RestaurantByOwner(ctx, userID))
	})
}

func (r *Restaurants) ByID(ctx context.Context, id string) (*models.Restaurant, error) {
	return r.Store.RestaurantByID(ctx, id)
}

// Public lists storefronts for customers
func (r *Restaurants) Public(ctx context.Context, f store.RestaurantFilter) ([]models.Restaurant, error) {
	key := querycache.Key("public-restaurants", f.Search, f.Cuisine, fmt.Sprint(f.Featured))
	return querycache.Fetch(ctx, r.Cache, key, func(ctx context.Context) ([]models.Restaurant, error) {
		return r.Store.ListRestaurants(ctx, f)
	})
}

// Create is lookup-or-create: a vendor who already has a restaurant gets it back unchanged
func (r *Restaurants) Create(ctx context.Context, userID string, in RestaurantInput, img *Image) (*models.Restaurant, bool, error) {
	const msg = "Failed to create restaurant"

	existing, err := notFoundAsNil(r.Store.RestaurantByOwner(ctx, userID))
	if err != nil {
		return nil, false, r.fail(msg, err, "user_id", userID)
	}
	if existing != nil {
		return existing, false, nil
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, false, r.fail(msg, ErrNameRequired, "user_id", userID)
	}

	rest := &models.Restaurant{ID: uuid.NewString(), UserID: userID}
	apply(rest, in)
	if img != nil {
		url, err := uploadImage(ctx, r.Images, BucketRestaurantImages, rest.ID, img)
		if err != nil {
			return nil, false, r.fail("Failed to upload restaurant image", err, "user_id", userID)
		}
		rest.Image = url
	}

	if err := r.Store.CreateRestaurant(ctx, rest); err != nil {
		if img != nil {
			removeImage(ctx, r.Images, r.Log, BucketRestaurantImages, &rest.Image)
		}
		return nil, false, r.fail(msg, err, "user_id", userID)
	}

	r.Log.Info("restaurant created", "restaurant_id", rest.ID, "user_id", userID)
	r.invalidateRestaurants(ctx)
	return rest, true, nil
}

func (r *Restaurants) Update(ctx context.Context, userID string, in RestaurantInput, img *Image) (*models.Restaurant, error) {
	const msg = "Failed to update restaurant"

	rest, err := r.Store.RestaurantByOwner(ctx, userID)
	if err != nil {
		return nil, r.fail(msg, err, "user_id", userID)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, r.fail(msg, ErrNameRequired, "user_id", userID)
	}

	previousImage := rest.Image
	apply(rest, in)
	if img != nil {
		url, err := uploadImage(ctx, r.Images, BucketRestaurantImages, rest.ID, img)
		if err != nil {
			return nil, r.fail("Failed to upload restaurant image", err, "restaurant_id", rest.ID)
		}
		rest.Image = url
	}

	if err := r.Store.SaveRestaurant(ctx, rest); err != nil {
		return nil, r.fail(msg, err, "restaurant_id", rest.ID)
	}
	if previousImage != rest.Image {
		removeImage(ctx, r.Images, r.Log, BucketRestaurantImages, &previousImage)
	}

	r.invalidateRestaurants(ctx)
	return rest, nil
}

// SetFeatured is the admin toggle for the storefront spotlight
func (r *Restaurants) SetFeatured(ctx context.Context, id string, featured bool) (*models.Restaurant, error) {
	rest, err := r.Store.SetRestaurantFeatured(ctx, id, featured)
	if err != nil {
		return nil, r.fail("Failed to update restaurant", err, "restaurant_id", id)
	}
	r.invalidateRestaurants(ctx)
	return rest, nil
}

func (r *Restaurants) invalidateRestaurants(ctx context.Context) {
	r.invalidate(ctx, "restaurant:", "public-restaurants:", "admin-restaurants:")
}

func apply(rest *models.Restaurant, in RestaurantInput) {
	rest.Name = strings.TrimSpace(in.Name)
	rest.CuisineType = in.CuisineType
	if in.Image != "" {
		rest.Image = in.Image
	}
	rest.DeliveryTime = in.DeliveryTime
	rest.DeliveryFee = in.DeliveryFee
	rest.Address = in.Address
}
