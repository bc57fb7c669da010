// Package client talks to the FoodConnect API over HTTP. It is the remote
// auth backend, profile source and realtime transport of a dashboard
// session, and carries the vendor order operations the CLI needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"foodconnect/models"
	"foodconnect/session"
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Reason     string `json:"reason"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	listeners map[int]func(session.AuthEvent)
	nextID    int
}

// New returns a client for the API at baseURL; hc may be nil
func New(baseURL string, hc *http.Client, log *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      hc,
		log:       log,
		listeners: map[int]func(session.AuthEvent){},
	}
}

// Token returns the bearer token in use, if any
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.signedIn(resp)
	return nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, meta session.SignUpMetadata) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     meta.Name,
		"email":    email,
		"password": password,
		"role":     string(meta.Role),
	}, &resp)
	if err != nil {
		return err
	}
	c.signedIn(resp)
	return nil
}

// SignOut revokes the token remotely and forgets it locally, even if revocation fails
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.Token() != "" {
		err = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	}
	c.setToken("", time.Time{})
	c.emit(session.AuthEvent{Type: session.SignedOut})
	return err
}

// GetSession asks the server who the current token belongs to. An expired or
// revoked token is dropped and reported as no session.
func (c *Client) GetSession(ctx context.Context) (*session.RemoteSession, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var resp struct {
		User        *models.User `json:"user"`
		AccessToken string       `json:"access_token"`
		ExpiresAt   time.Time    `json:"expires_at"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		c.setToken("", time.Time{})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, nil
	}
	return &session.RemoteSession{UserID: resp.User.ID, AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt}, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events. Events are
// delivered synchronously from the call that caused them.
func (c *Client) OnAuthStateChange(fn func(session.AuthEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// RestoreSession reuses a cached token without emitting an event
func (c *Client) RestoreSession(token string, expiresAt time.Time) {
	c.setToken(token, expiresAt)
}

// FetchProfile loads the signed-in user's profile; userID must be that user
func (c *Client) FetchProfile(ctx context.Context, userID string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.ID != userID {
		return nil, fmt.Errorf("profile for %s not available to this session", userID)
	}
	return resp.User, nil
}

// MyRestaurant returns the vendor's restaurant, nil before it is set up
func (c *Client) MyRestaurant(ctx context.Context) (*models.Restaurant, error) {
	var resp struct {
		Restaurant *models.Restaurant `json:"restaurant"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/vendor/restaurant", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Restaurant, nil
}

// VendorOrders lists the vendor's orders, optionally only those in status
func (c *Client) VendorOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	path := "/api/vendor/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, note string) (*models.Order, error) {
	var resp struct {
		Order *models.Order `json:"order"`
	}
	err := c.do(ctx, http.MethodPut, "/api/vendor/orders/"+url.PathEscape(orderID)+"/status", map[string]string{
		"status": string(status),
		"note":   note,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) signedIn(resp authResponse) {
	c.setToken(resp.Token, resp.ExpiresAt)
	if resp.User == nil {
		return
	}
	c.emit(session.AuthEvent{
		Type:    session.SignedIn,
		Session: &session.RemoteSession{UserID: resp.User.ID, AccessToken: resp.Token, ExpiresAt: resp.ExpiresAt},
	})
}

func (c *Client) setToken(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token, c.expiresAt = token, expiresAt
	c.mu.Unlock()
}

func (c *Client) emit(ev session.AuthEvent) {
	c.mu.Lock()
	fns := make([]func(session.AuthEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
