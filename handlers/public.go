package handlers

import (
	"net/http"
	"strings"

	"foodconnect/models"
	"foodconnect/statemachine"
	"foodconnect/store"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns storefronts, featured first (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.Restaurants.Public(c.Request.Context(), store.RestaurantFilter{
		Search:   c.Query("search"),
		Cuisine:  c.Query("cuisine"),
		Featured: c.Query("featured") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single restaurant
func (h *Handler) GetRestaurant(c *gin.Context) {
	restaurant, err := h.Restaurants.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the available items of a restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	restaurant, err := h.Restaurants.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	items, err := h.Menu.ListAvailable(c.Request.Context(), restaurant.ID, c.Query("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(items),
		"menu":       items,
	})
}

func (h *Handler) MenuCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.MenuCategories})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"states":          models.OrderStatuses,
		"state_machine":   statemachine.Transitions(),
		"terminal_states": []models.OrderStatus{models.StatusCompleted, models.StatusCancelled},
		"description":     "Food Delivery Order Lifecycle State Machine",
	})
}

// GetObject serves an uploaded image by its public URL
func (h *Handler) GetObject(c *gin.Context) {
	obj, err := h.Objects.Get(c.Request.Context(), c.Param("bucket"), strings.TrimPrefix(c.Param("path"), "/"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "FoodConnect API",
		"version": "1.0.0",
	})
}
