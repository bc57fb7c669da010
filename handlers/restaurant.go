package handlers

import (
	"net/http"
	"strconv"

	"foodconnect/dataaccess"
	"foodconnect/middleware"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// ── Restaurant Management ────────────────────────────────────────────────────

// GetMyRestaurant returns the vendor's restaurant, or null before setup
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// CreateRestaurant is lookup-or-create: 201 for a new restaurant, 200 for the existing one
func (h *Handler) CreateRestaurant(c *gin.Context) {
	in, img, ok := h.bindRestaurant(c)
	if !ok {
		return
	}
	restaurant, created, err := h.Restaurants.Create(c.Request.Context(), middleware.GetUserID(c), in, img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Restaurant already exists", "restaurant": restaurant})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	in, img, ok := h.bindRestaurant(c)
	if !ok {
		return
	}
	restaurant, err := h.Restaurants.Update(c.Request.Context(), middleware.GetUserID(c), in, img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

func (h *Handler) bindRestaurant(c *gin.Context) (dataaccess.RestaurantInput, *dataaccess.Image, bool) {
	var in dataaccess.RestaurantInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, nil, false
	}
	img, err := h.readImage(c, "image")
	if err != nil {
		h.respondError(c, err)
		return in, nil, false
	}
	return in, img, true
}

// RestaurantQRCode renders a PNG linking to the public storefront
func (h *Handler) RestaurantQRCode(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	if restaurant == nil {
		h.respondError(c, dataaccess.ErrRestaurantRequired)
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "256"))
	if err != nil || size < 64 || size > 1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
		return
	}
	png, err := qrcode.Encode(h.PublicBaseURL+"/restaurants/"+restaurant.ID, qrcode.Medium, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ── Vendor Profile ───────────────────────────────────────────────────────────

func (h *Handler) GetVendorProfile(c *gin.Context) {
	profile, err := h.Profiles.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *Handler) CreateVendorProfile(c *gin.Context) {
	in, logo, ok := h.bindProfile(c)
	if !ok {
		return
	}
	profile, created, err := h.Profiles.Create(c.Request.Context(), middleware.GetUserID(c), in, logo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"profile": profile})
}

func (h *Handler) UpdateVendorProfile(c *gin.Context) {
	in, logo, ok := h.bindProfile(c)
	if !ok {
		return
	}
	profile, err := h.Profiles.Update(c.Request.Context(), middleware.GetUserID(c), in, logo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "profile": profile})
}

func (h *Handler) bindProfile(c *gin.Context) (dataaccess.VendorProfileInput, *dataaccess.Image, bool) {
	var in dataaccess.VendorProfileInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, nil, false
	}
	logo, err := h.readImage(c, "logo")
	if err != nil {
		h.respondError(c, err)
		return in, nil, false
	}
	return in, logo, true
}

// ── Menu Management ─────────────────────────────────────────────────────────

// GetMyMenu lists every item of the vendor's restaurant, empty before setup
func (h *Handler) GetMyMenu(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	restaurantID := ""
	if restaurant != nil {
		restaurantID = restaurant.ID
	}
	items, err := h.Menu.List(c.Request.Context(), restaurantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// AddMenuItem adds a new item to the restaurant's menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	vendorID := middleware.GetUserID(c)
	restaurant, ok := h.vendorRestaurant(c, vendorID)
	if !ok {
		return
	}
	if restaurant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Create a restaurant first before adding menu items"})
		return
	}
	in, img, ok := h.bindMenuItem(c)
	if !ok {
		return
	}
	item, err := h.Menu.Add(c.Request.Context(), vendorID, restaurant.ID, in, img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// UpdateMenuItem updates a menu item (only by the owner)
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	in, img, ok := h.bindMenuItem(c)
	if !ok {
		return
	}
	item, err := h.Menu.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("itemId"), in, img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

// DeleteMenuItem removes a menu item
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	if err := h.Menu.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("itemId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

func (h *Handler) SetMenuItemAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.Menu.ToggleAvailability(c.Request.Context(), middleware.GetUserID(c), c.Param("itemId"), *req.IsAvailable)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) bindMenuItem(c *gin.Context) (dataaccess.MenuItemInput, *dataaccess.Image, bool) {
	var in dataaccess.MenuItemInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, nil, false
	}
	img, err := h.readImage(c, "image")
	if err != nil {
		h.respondError(c, err)
		return in, nil, false
	}
	return in, img, true
}
