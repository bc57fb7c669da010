package handlers

import (
	"net/http"

	"foodconnect/analytics"
	"foodconnect/middleware"
	"foodconnect/models"
	"foodconnect/store"

	"github.com/gin-gonic/gin"
)

// AdminListRestaurants returns every restaurant with its sales figures
func (h *Handler) AdminListRestaurants(c *gin.Context) {
	restaurants, err := h.AdminRestaurants.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

type FeaturedRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

func (h *Handler) AdminSetFeatured(c *gin.Context) {
	var req FeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	restaurant, err := h.Restaurants.SetFeatured(c.Request.Context(), c.Param("id"), *req.Featured)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// AdminGetAllUsers lists users, optionally only those with ?role=
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	if role != "" && !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role " + string(role)})
		return
	}
	users, err := h.Users.List(c.Request.Context(), role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func (h *Handler) AdminDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.GetUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}
	if err := h.Users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// AdminGetAllOrders lists orders across restaurants with revenue totals
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	filter := store.OrderFilter{
		Status:       models.OrderStatus(c.Query("status")),
		RestaurantID: c.Query("restaurant_id"),
		UserID:       c.Query("customer_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(filter.Status)})
		return
	}

	orders, err := h.Orders.ListAll(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	summary := analytics.Summarize(orders)
	c.JSON(http.StatusOK, gin.H{
		"count":         len(orders),
		"total_revenue": summary.TotalSales,
		"summary":       summary,
		"orders":        orders,
	})
}

type ForceStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// AdminForceOrderStatus sets any status, bypassing the state machine
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	var req ForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.Orders.ForceStatus(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order status overridden",
		"current_status": order.Status,
		"order":          order,
	})
}
