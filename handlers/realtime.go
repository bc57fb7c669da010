package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"foodconnect/middleware"
	"foodconnect/models"
	"foodconnect/realtime"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 15 * time.Second

// StreamChanges relays row changes of one table as server-sent events.
// Non-admins must filter on a column that ties the rows to themselves.
func (h *Handler) StreamChanges(c *gin.Context) {
	table := c.Param("table")
	event := realtime.EventType(strings.ToUpper(c.DefaultQuery("event", string(realtime.EventInsert))))
	if !event.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event must be INSERT, UPDATE or DELETE"})
		return
	}
	filter, err := realtime.ParseFilter(c.Query("filter"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	allowed, ok := h.mayWatch(c, table, filter)
	if !ok {
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You may only subscribe to your own rows"})
		return
	}

	changes := make(chan realtime.Change, 32)
	sub, err := h.Feed.Subscribe(c.Request.Context(), table, event, filter.String(), func(ch realtime.Change) {
		select {
		case changes <- ch:
		default:
			h.Log.Warn("change stream too slow, dropping", "table", table)
		}
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer sub.Unsubscribe()

	stream(c, "subscribed", gin.H{"channel": realtime.Channel(table, event, filter)}, "change", changes)
}

// mayWatch applies row-level rules to a subscription request. The bool pair is
// (allowed, responded-ok); ok is false when an error response was already written.
func (h *Handler) mayWatch(c *gin.Context, table string, f realtime.Filter) (bool, bool) {
	userID := middleware.GetUserID(c)
	switch middleware.GetRole(c) {
	case models.RoleAdmin:
		return true, true
	case models.RoleVendor:
		if f.Column != "restaurant_id" || (table != "orders" && table != "menu_items") {
			return false, true
		}
		restaurant, ok := h.vendorRestaurant(c, userID)
		if !ok {
			return false, false
		}
		return restaurant != nil && restaurant.ID == f.Value, true
	case models.RoleCustomer:
		return table == "orders" && f.Column == "user_id" && f.Value == userID, true
	case models.RoleDriver:
		return table == "orders" && f.Column == "driver_id" && f.Value == userID, true
	}
	return false, true
}

// stream sends hello, then one event per value received on ch, with periodic
// keep-alives, until the client goes away
func stream[T any](c *gin.Context, hello string, helloData any, event string, ch <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(hello, helloData)
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-ch:
			c.SSEvent(event, v)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			return true
		}
	})
}
