package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"foodconnect/authsvc"
	"foodconnect/dataaccess"
	"foodconnect/models"
	"foodconnect/objectstore"
	"foodconnect/realtime"
	"foodconnect/statemachine"
	"foodconnect/store"

	"github.com/gin-gonic/gin"
)

// Handler holds everything the HTTP endpoints need
type Handler struct {
	Auth             *authsvc.Service
	Users            *dataaccess.Users
	Restaurants      *dataaccess.Restaurants
	Profiles         *dataaccess.VendorProfiles
	Menu             *dataaccess.MenuItems
	Orders           *dataaccess.Orders
	AdminRestaurants *dataaccess.AdminRestaurants
	Objects          *objectstore.Store
	Feed             *realtime.Feed
	PublicBaseURL    string
	MaxUploadBytes   int64
	Log              *slog.Logger
}

func New(deps dataaccess.Deps, auth *authsvc.Service, objects *objectstore.Store, feed *realtime.Feed, publicBaseURL string, maxUploadBytes int64) *Handler {
	return &Handler{
		Auth:             auth,
		Users:            dataaccess.NewUsers(deps),
		Restaurants:      dataaccess.NewRestaurants(deps),
		Profiles:         dataaccess.NewVendorProfiles(deps),
		Menu:             dataaccess.NewMenuItems(deps),
		Orders:           dataaccess.NewOrders(deps),
		AdminRestaurants: dataaccess.NewAdminRestaurants(deps),
		Objects:          objects,
		Feed:             feed,
		PublicBaseURL:    strings.TrimRight(publicBaseURL, "/"),
		MaxUploadBytes:   maxUploadBytes,
		Log:              deps.Log,
	}
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var illegal *statemachine.IllegalTransitionError
	if errors.As(err, &illegal) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    illegal.From,
			"requested":         illegal.To,
			"reason":            illegal.Error(),
			"valid_next_states": illegal.Valid,
		})
		return
	}

	status := statusFor(err)
	message := err.Error()
	var mutErr *dataaccess.MutationError
	if errors.As(err, &mutErr) {
		message = mutErr.Message
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.FullPath(), "error", err)
		if mutErr == nil {
			message = "Internal server error"
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	body := gin.H{"error": message}
	if mutErr != nil {
		body["reason"] = mutErr.Err.Error()
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials), errors.Is(err, authsvc.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, dataaccess.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, objectstore.ErrNotFound),
		errors.Is(err, dataaccess.ErrRestaurantRequired):
		return http.StatusNotFound
	case errors.Is(err, authsvc.ErrEmailTaken), errors.Is(err, dataaccess.ErrAlreadyAssigned),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, objectstore.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, objectstore.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, dataaccess.ErrInvalidPrice), errors.Is(err, dataaccess.ErrInvalidCategory),
		errors.Is(err, dataaccess.ErrNameRequired), errors.Is(err, dataaccess.ErrInvalidStatus),
		errors.Is(err, dataaccess.ErrEmptyOrder), errors.Is(err, dataaccess.ErrInvalidQuantity),
		errors.Is(err, dataaccess.ErrItemUnavailable), errors.Is(err, authsvc.ErrInvalidRole),
		errors.Is(err, authsvc.ErrWeakPassword), errors.Is(err, realtime.ErrInvalidFilter),
		errors.Is(err, objectstore.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readImage returns the uploaded file in field, or nil when the request carries none
func (h *Handler) readImage(c *gin.Context, field string) (*dataaccess.Image, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", objectstore.ErrTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &dataaccess.Image{Filename: fh.Filename, Data: data}, nil
}

// vendorRestaurant resolves the caller's restaurant; nil means not set up yet
func (h *Handler) vendorRestaurant(c *gin.Context, vendorID string) (*models.Restaurant, bool) {
	r, err := h.Restaurants.Get(c.Request.Context(), vendorID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return r, true
}
