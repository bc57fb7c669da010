package dataaccess

import (
	"context"
	"strings"

	"foodconnect/models"
	"foodconnect/querycache"
	"foodconnect/realtime"
	"foodconnect/store"
)

// MenuItemInput is the editable part of a menu item
type MenuItemInput struct {
	Name        string  `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price"`
	Category    *string `json:"category" form:"category"`
	ImageURL    *string `json:"image_url" form:"image_url"`
	IsAvailable *bool   `json:"is_available" form:"is_available"`
}

func (in MenuItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if in.Price < 0 {
		return ErrInvalidPrice
	}
	if in.Category != nil && *in.Category != "" && !models.IsMenuCategory(*in.Category) {
		return ErrInvalidCategory
	}
	return nil
}

type MenuItems struct {
	base
}

func NewMenuItems(d Deps) *MenuItems {
	return &MenuItems{base{d}}
}

// List returns the full menu of restaurantID, newest first. An unresolved restaurant has an empty menu.
func (m *MenuItems) List(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	if restaurantID == "" {
		return []models.MenuItem{}, nil
	}
	return querycache.Fetch(ctx, m.Cache, querycache.Key("menuItems", restaurantID), func(ctx context.Context) ([]models.MenuItem, error) {
		return m.Store.MenuItems(ctx, restaurantID, store.MenuFilter{})
	})
}

// ListAvailable is the customer-facing menu
func (m *MenuItems) ListAvailable(ctx context.Context, restaurantID, category string) ([]models.MenuItem, error) {
	if restaurantID == "" {
		return []models.MenuItem{}, nil
	}
	key := querycache.Key("public-menu", restaurantID, category)
	return querycache.Fetch(ctx, m.Cache, key, func(ctx context.Context) ([]models.MenuItem, error) {
		return m.Store.MenuItems(ctx, restaurantID, store.MenuFilter{Category: category, AvailableOnly: true})
	})
}

// Add creates an item on vendorID's restaurant; an uploaded image wins over in.ImageURL
func (m *MenuItems) Add(ctx context.Context, vendorID, restaurantID string, in MenuItemInput, img *Image) (*models.MenuItem, error) {
	const msg = "Failed to add menu item"

	if restaurantID == "" {
		return nil, m.fail(msg, ErrRestaurantRequired, "vendor_id", vendorID)
	}
	if err := in.validate(); err != nil {
		return nil, m.fail(msg, err, "vendor_id", vendorID)
	}

	item := &models.MenuItem{RestaurantID: restaurantID, VendorID: vendorID, IsAvailable: true}
	applyMenuItem(item, in)
	if img != nil {
		url, err := uploadImage(ctx, m.Images, BucketMenuImages, restaurantID, img)
		if err != nil {
			return nil, m.fail("Failed to upload image", err, "restaurant_id", restaurantID)
		}
		item.ImageURL = &url
	}

	if err := m.Store.CreateMenuItem(ctx, item); err != nil {
		if img != nil {
			removeImage(ctx, m.Images, m.Log, BucketMenuImages, item.ImageURL)
		}
		return nil, m.fail(msg, err, "restaurant_id", restaurantID)
	}

	m.afterWrite(ctx, restaurantID, realtime.EventInsert, item)
	return item, nil
}

func (m *MenuItems) Update(ctx context.Context, vendorID, itemID string, in MenuItemInput, img *Image) (*models.MenuItem, error) {
	const msg = "Failed to update menu item"

	if err := in.validate(); err != nil {
		return nil, m.fail(msg, err, "menu_item_id", itemID)
	}
	item, err := m.Store.MenuItem(ctx, vendorID, itemID)
	if err != nil {
		return nil, m.fail(msg, err, "menu_item_id", itemID)
	}

	previousImage := item.ImageURL
	applyMenuItem(item, in)
	if img != nil {
		url, err := uploadImage(ctx, m.Images, BucketMenuImages, item.RestaurantID, img)
		if err != nil {
			return nil, m.fail("Failed to upload image", err, "menu_item_id", itemID)
		}
		item.ImageURL = &url
	}

	if err := m.Store.SaveMenuItem(ctx, item); err != nil {
		return nil, m.fail(msg, err, "menu_item_id", itemID)
	}
	if previousImage != nil && (item.ImageURL == nil || *item.ImageURL != *previousImage) {
		removeImage(ctx, m.Images, m.Log, BucketMenuImages, previousImage)
	}

	m.afterWrite(ctx, item.RestaurantID, realtime.EventUpdate, item)
	return item, nil
}

// Delete removes the row, then the stored image on a best-effort basis
func (m *MenuItems) Delete(ctx context.Context, vendorID, itemID string) error {
	const msg = "Failed to delete menu item"

	item, err := m.Store.MenuItem(ctx, vendorID, itemID)
	if err != nil {
		return m.fail(msg, err, "menu_item_id", itemID)
	}
	if err := m.Store.DeleteMenuItem(ctx, vendorID, itemID); err != nil {
		return m.fail(msg, err, "menu_item_id", itemID)
	}
	removeImage(ctx, m.Images, m.Log, BucketMenuImages, item.ImageURL)

	m.invalidate(ctx, querycache.Key("menuItems", item.RestaurantID), querycache.Key("public-menu", item.RestaurantID))
	if err := m.Feed.Publish(ctx, "menu_items", realtime.EventDelete, nil, item); err != nil {
		m.Log.Warn("menu item change not published", "menu_item_id", itemID, "error", err)
	}
	return nil
}

// ToggleAvailability sets is_available to available
func (m *MenuItems) ToggleAvailability(ctx context.Context, vendorID, itemID string, available bool) (*models.MenuItem, error) {
	item, err := m.Store.SetMenuItemAvailability(ctx, vendorID, itemID, available)
	if err != nil {
		return nil, m.fail("Failed to update availability", err, "menu_item_id", itemID)
	}
	m.afterWrite(ctx, item.RestaurantID, realtime.EventUpdate, item)
	return item, nil
}

func (m *MenuItems) afterWrite(ctx context.Context, restaurantID string, event realtime.EventType, item *models.MenuItem) {
	m.invalidate(ctx, querycache.Key("menuItems", restaurantID), querycache.Key("public-menu", restaurantID))
	if err := m.Feed.Publish(ctx, "menu_items", event, item, nil); err != nil {
		m.Log.Warn("menu item change not published", "menu_item_id", item.ID, "error", err)
	}
}

func applyMenuItem(item *models.MenuItem, in MenuItemInput) {
	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Price = in.Price
	item.Category = in.Category
	if in.ImageURL != nil {
		item.ImageURL = in.ImageURL
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
}
