package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foodconnect/authsvc"
	"foodconnect/dataaccess"
	"foodconnect/events"
	"foodconnect/handlers"
	"foodconnect/logger"
	"foodconnect/objectstore"
	"foodconnect/querycache"
	"foodconnect/realtime"
	"foodconnect/routes"
	"foodconnect/store"
	"foodconnect/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://api.test"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.Discard()
	db := storetest.NewDB(t)
	st := store.New(db)
	objects := objectstore.New(db, baseURL, 1<<20)
	feed := realtime.NewFeed(rdb, log)
	deps := dataaccess.Deps{
		Store:  st,
		Cache:  querycache.New(rdb, time.Minute, log),
		Images: objects,
		Feed:   feed,
		Events: events.Nop{},
		Log:    log,
	}
	auth := authsvc.New(st, rdb, []byte("test-secret"), time.Hour, log)

	r := gin.New()
	routes.SetupRoutes(r, handlers.New(deps, auth, objects, feed, baseURL, 1<<20))
	return r
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func register(t *testing.T, r http.Handler, email, role string) string {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Test " + role, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// shop registers a vendor with a restaurant and one menu item priced at 100
func shop(t *testing.T, r http.Handler) (token, restaurantID, itemID string) {
	t.Helper()
	token = register(t, r, "vendor@test.com", "vendor")

	w := call(t, r, http.MethodPost, "/api/vendor/restaurant", token, gin.H{"name": "Mama's Kitchen", "cuisine_type": "Italian"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	restaurantID = decode(t, w)["restaurant"].(map[string]any)["id"].(string)

	w = call(t, r, http.MethodPost, "/api/vendor/menu", token, gin.H{"name": "Lasagne", "price": 100, "category": "Main Course"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID = decode(t, w)["item"].(map[string]any)["id"].(string)
	return token, restaurantID, itemID
}

func order(t *testing.T, r http.Handler, customerToken, restaurantID, itemID string, qty int) map[string]any {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/customer/orders", customerToken, gin.H{
		"restaurant_id":    restaurantID,
		"first_name":       "Thandi",
		"last_name":        "Mokoena",
		"email":            "thandi@test.com",
		"phone":            "0821234567",
		"delivery_address": "12 Long Street",
		"items":            []gin.H{{"menu_item_id": itemID, "quantity": qty}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["order"].(map[string]any)
}

func TestHealth(t *testing.T) {
	w := call(t, newRouter(t), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestAuthAndRoleChecks(t *testing.T) {
	r := newRouter(t)
	customer := register(t, r, "customer@test.com", "customer")

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/profile", "not-a-jwt", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/vendor/restaurant", customer, nil).Code)

	w := call(t, r, http.MethodGet, "/api/profile", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer", decode(t, w)["user"].(map[string]any)["role"])
}

func TestRegisterRejectsDuplicateEmailAndBadRole(t *testing.T) {
	r := newRouter(t)
	register(t, r, "dup@test.com", "customer")

	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "dup@test.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "b@test.com", "password": "secret123", "role": "chef"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndLogout(t *testing.T) {
	r := newRouter(t)
	register(t, r, "driver@test.com", "driver")

	w := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "driver@test.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "DRIVER@test.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = call(t, r, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, decode(t, w)["access_token"])

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/auth/session", token, nil).Code)
}

func TestVendorWithoutRestaurant(t *testing.T) {
	r := newRouter(t)
	vendor := register(t, r, "vendor@test.com", "vendor")

	w := call(t, r, http.MethodGet, "/api/vendor/restaurant", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["restaurant"])

	w = call(t, r, http.MethodGet, "/api/vendor/orders", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	w = call(t, r, http.MethodPost, "/api/vendor/menu", vendor, gin.H{"name": "Soup", "price": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRestaurantIsIdempotent(t *testing.T) {
	r := newRouter(t)
	vendor, restaurantID, _ := shop(t, r)

	w := call(t, r, http.MethodPost, "/api/vendor/restaurant", vendor, gin.H{"name": "Another Name"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, restaurantID, decode(t, w)["restaurant"].(map[string]any)["id"])
}

func TestMenuValidationAndAvailability(t *testing.T) {
	r := newRouter(t)
	vendor, restaurantID, itemID := shop(t, r)

	w := call(t, r, http.MethodPost, "/api/vendor/menu", vendor, gin.H{"name": "Bad", "price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = call(t, r, http.MethodPost, "/api/vendor/menu", vendor, gin.H{"name": "Bad", "price": 1, "category": "Snacks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPatch, "/api/vendor/menu/"+itemID+"/availability", vendor, gin.H{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["item"].(map[string]any)["is_available"])

	w = call(t, r, http.MethodGet, "/api/restaurants/"+restaurantID+"/menu", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	w = call(t, r, http.MethodGet, "/api/vendor/menu", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
}

func TestOrderLifecycle(t *testing.T) {
	r := newRouter(t)
	vendor, restaurantID, itemID := shop(t, r)
	customer := register(t, r, "customer@test.com", "customer")
	driver := register(t, r, "driver@test.com", "driver")

	placed := order(t, r, customer, restaurantID, itemID, 2)
	orderID := placed["id"].(string)
	assert.Equal(t, "pending", placed["status"])
	assert.EqualValues(t, 200, placed["total_amount"])

	w := call(t, r, http.MethodGet, "/api/vendor/orders", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = call(t, r, http.MethodPut, "/api/vendor/orders/"+orderID+"/status", vendor, gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ready", decode(t, w)["current_status"])

	w = call(t, r, http.MethodPut, "/api/vendor/orders/"+orderID+"/status", vendor, gin.H{"status": "pending"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ready", body["current_status"])
	assert.Contains(t, body["valid_next_states"], "delivering")

	w = call(t, r, http.MethodGet, "/api/driver/orders/available", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPut, "/api/driver/orders/"+orderID+"/pickup", driver, nil).Code)
	assert.Equal(t, http.StatusConflict, call(t, r, http.MethodPut, "/api/driver/orders/"+orderID+"/pickup", driver, nil).Code)

	w = call(t, r, http.MethodPut, "/api/driver/orders/"+orderID+"/deliver", driver, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode(t, w)["current_status"])

	w = call(t, r, http.MethodGet, "/api/customer/orders/"+orderID, customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode(t, w)["order"].(map[string]any)["status_history"].([]any)
	assert.Len(t, history, 4)

	w = call(t, r, http.MethodGet, "/api/vendor/analytics?bucket=day", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)["summary"].(map[string]any)
	assert.EqualValues(t, 200, summary["total_sales"])
	assert.EqualValues(t, 1, summary["total_orders"])
}

func TestCustomerCancelWindow(t *testing.T) {
	r := newRouter(t)
	vendor, restaurantID, itemID := shop(t, r)
	customer := register(t, r, "customer@test.com", "customer")
	other := register(t, r, "other@test.com", "customer")

	first := order(t, r, customer, restaurantID, itemID, 1)["id"].(string)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/customer/orders/"+first, other, nil).Code)

	w := call(t, r, http.MethodPut, "/api/customer/orders/"+first+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode(t, w)["order"].(map[string]any)["status"])

	second := order(t, r, customer, restaurantID, itemID, 1)["id"].(string)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPut, "/api/vendor/orders/"+second+"/status", vendor, gin.H{"status": "preparing"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, r, http.MethodPut, "/api/customer/orders/"+second+"/cancel", customer, nil).Code)
}

func TestAdminOverridesAndTotals(t *testing.T) {
	r := newRouter(t)
	_, restaurantID, itemID := shop(t, r)
	customer := register(t, r, "customer@test.com", "customer")
	admin := register(t, r, "admin@test.com", "admin")

	kept := order(t, r, customer, restaurantID, itemID, 3)["id"].(string)
	dropped := order(t, r, customer, restaurantID, itemID, 1)["id"].(string)

	w := call(t, r, http.MethodPut, "/api/admin/orders/"+dropped+"/status", admin, gin.H{"status": "cancelled", "note": "fraud"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Completed back to pending is illegal for everyone but an admin
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPut, "/api/admin/orders/"+kept+"/status", admin, gin.H{"status": "completed"}).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPut, "/api/admin/orders/"+kept+"/status", admin, gin.H{"status": "pending"}).Code)

	w = call(t, r, http.MethodGet, "/api/admin/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 300, body["total_revenue"])

	w = call(t, r, http.MethodGet, "/api/admin/orders?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodGet, "/api/admin/restaurants", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	restaurants := decode(t, w)["restaurants"].([]any)
	require.Len(t, restaurants, 1)
	row := restaurants[0].(map[string]any)
	assert.EqualValues(t, 300, row["total_sales"])
	assert.EqualValues(t, 1, row["total_orders"])
	assert.EqualValues(t, 1, row["cancelled_orders"])
}

func TestAdminFeatureAndUsers(t *testing.T) {
	r := newRouter(t)
	_, restaurantID, _ := shop(t, r)
	admin := register(t, r, "admin@test.com", "admin")
	register(t, r, "driver@test.com", "driver")

	w := call(t, r, http.MethodPut, "/api/admin/restaurants/"+restaurantID+"/featured", admin, gin.H{"featured": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/api/restaurants?featured=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = call(t, r, http.MethodGet, "/api/admin/users?role=driver", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode(t, w)["users"].([]any)
	require.Len(t, users, 1)
	driverID := users[0].(map[string]any)["id"].(string)

	require.Equal(t, http.StatusOK, call(t, r, http.MethodDelete, "/api/admin/users/"+driverID, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodDelete, "/api/admin/users/"+driverID, admin, nil).Code)
}

func TestDeletedAccountTokenRejected(t *testing.T) {
	r := newRouter(t)
	vendor, _, _ := shop(t, r)
	admin := register(t, r, "admin@test.com", "admin")

	w := call(t, r, http.MethodGet, "/api/profile", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	vendorID := decode(t, w)["user"].(map[string]any)["id"].(string)

	require.Equal(t, http.StatusOK, call(t, r, http.MethodDelete, "/api/admin/users/"+vendorID, admin, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/profile", vendor, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/vendor/orders", vendor, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/profile", admin, nil).Code)
}

func TestRestaurantImageUpload(t *testing.T) {
	r := newRouter(t)
	vendor := register(t, r, "vendor@test.com", "vendor")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Photo Grill"))
	part, err := mw.CreateFormFile("image", "front.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/vendor/restaurant", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+vendor)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	url := decode(t, w)["restaurant"].(map[string]any)["image"].(string)
	require.True(t, strings.HasPrefix(url, baseURL+"/storage/v1/object/public/restaurant-images/"), url)

	w = call(t, r, http.MethodGet, strings.TrimPrefix(url, baseURL), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, img.Bytes(), w.Body.Bytes())
}

func TestRestaurantQRCode(t *testing.T) {
	r := newRouter(t)
	vendor, _, _ := shop(t, r)

	w := call(t, r, http.MethodGet, "/api/vendor/restaurant/qrcode?size=128", vendor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(w.Body)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, call(t, r, http.MethodGet, "/api/vendor/restaurant/qrcode?size=5000", vendor, nil).Code)
}

func TestStateMachineInfo(t *testing.T) {
	w := call(t, newRouter(t), http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["states"], 7)
	assert.NotEmpty(t, body["state_machine"])
}

func TestStreamChangesRequiresOwnRows(t *testing.T) {
	r := newRouter(t)
	vendor, _, _ := shop(t, r)
	customer := register(t, r, "customer@test.com", "customer")

	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/realtime/v1/orders?filter=restaurant_id=eq.someone-else", vendor, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/realtime/v1/orders", customer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, r, http.MethodGet, "/realtime/v1/orders?event=UPSERT", customer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, r, http.MethodGet, "/realtime/v1/orders?filter=restaurant_id", vendor, nil).Code)
}

func TestOrderNotificationStream(t *testing.T) {
	r := newRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	vendor, restaurantID, itemID := shop(t, r)
	customer := register(t, r, "customer@test.com", "customer")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/vendor/orders/notifications", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+vendor)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}

	waitFor("event:ready")
	placed := order(t, r, customer, restaurantID, itemID, 1)

	waitFor("event:notification")
	data := waitFor("data:")
	assert.Contains(t, data, "New Order Received!")
	assert.Contains(t, data, fmt.Sprintf("Order #%s - R100.00", placed["id"].(string)[:8]))
}
