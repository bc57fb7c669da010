package handlers

import (
	"net/http"

	"foodconnect/middleware"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders shows ready orders no driver has claimed yet
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.Orders.ListAvailableForDrivers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) GetMyDeliveries(c *gin.Context) {
	orders, err := h.Orders.ListForDriver(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// PickupOrder claims a ready order for the calling driver
func (h *Handler) PickupOrder(c *gin.Context) {
	order, err := h.Orders.Pickup(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order picked up",
		"current_status": order.Status,
		"order":          order,
	})
}

func (h *Handler) DeliverOrder(c *gin.Context) {
	order, err := h.Orders.Deliver(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order delivered",
		"current_status": order.Status,
		"order":          order,
	})
}
