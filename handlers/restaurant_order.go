package handlers

import (
	"net/http"
	"time"

	"foodconnect/analytics"
	"foodconnect/middleware"
	"foodconnect/models"
	"foodconnect/notifier"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns the vendor's orders newest first
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	restaurantID := ""
	if restaurant != nil {
		restaurantID = restaurant.ID
	}
	orders, err := h.Orders.List(c.Request.Context(), restaurantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Status counts are over the whole list, before filtering
	summary := analytics.Summarize(orders).ByStatus
	if status := models.OrderStatus(c.Query("status")); status != "" {
		filtered := make([]models.Order, 0, len(orders))
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

func (h *Handler) GetRestaurantOrder(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	if restaurant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), restaurant.ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus handles the vendor's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	vendorID := middleware.GetUserID(c)
	restaurant, ok := h.vendorRestaurant(c, vendorID)
	if !ok {
		return
	}
	if restaurant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.SetStatus(c.Request.Context(), vendorID, restaurant.ID, c.Param("id"), req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order status updated",
		"order_id":       order.ID,
		"current_status": order.Status,
		"order":          order,
	})
}

// OrderNotifications streams a notification for every new order of the vendor's restaurant
func (h *Handler) OrderNotifications(c *gin.Context) {
	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	if restaurant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}

	notes := make(chan notifier.Notification, 16)
	n := notifier.New(h.Feed, func(note notifier.Notification) {
		select {
		case notes <- note:
		default:
			h.Log.Warn("notification stream too slow, dropping", "order_id", note.OrderID)
		}
	}, h.Log)
	if err := n.Watch(c.Request.Context(), restaurant.ID); err != nil {
		h.respondError(c, err)
		return
	}
	defer n.Close()

	stream(c, "ready", gin.H{"restaurant_id": restaurant.ID}, "notification", notes)
}

// GetAnalytics aggregates the vendor's orders into totals, a time series and top items
func (h *Handler) GetAnalytics(c *gin.Context) {
	granularity, err := analytics.ParseGranularity(c.Query("bucket"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown time zone " + tz})
			return
		}
	}

	restaurant, ok := h.vendorRestaurant(c, middleware.GetUserID(c))
	if !ok {
		return
	}
	restaurantID := ""
	if restaurant != nil {
		restaurantID = restaurant.ID
	}
	orders, err := h.Orders.List(c.Request.Context(), restaurantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":       analytics.Summarize(orders),
		"series":        analytics.Series(orders, granularity, loc),
		"popular_items": analytics.PopularItems(orders, 5),
		"bucket":        granularity,
	})
}
