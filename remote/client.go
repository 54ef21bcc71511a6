// Package remote is the HTTP client for the upstream storefront API. Every
// call is best-effort from the engine's point of view: callers log errors and
// take their fallback path.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vogue/models"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("remote: not found")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.Code)
}

const DefaultTimeout = 10 * time.Second

// Client talks to the upstream API at BaseURL.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	SessionID string

	mu    sync.RWMutex
	token string
	csrf  string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetCSRFToken sets the X-CSRF-Token header value for mutating requests.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	c.csrf = token
	c.mu.Unlock()
}

// Resolve turns a path or absolute URL into an absolute URL on the upstream.
func (c *Client) Resolve(ref string) (string, error) {
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, ref string, body io.Reader, contentType string) (*http.Request, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, ref, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrf != "" && method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	c.mu.RUnlock()
	if c.SessionID != "" {
		req.Header.Set("X-Session-ID", c.SessionID)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrNotFound)
	}
	return nil, &StatusError{Method: req.Method, Path: req.URL.Path, Code: resp.StatusCode}
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) FetchProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := c.doJSON(ctx, http.MethodGet, "/api/cart/product/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) FetchProducts(ctx context.Context) ([]models.Product, error) {
	var ps []models.Product
	err := c.doJSON(ctx, http.MethodGet, "/api/products", nil, &ps)
	return ps, err
}

func (c *Client) FetchQuickView(ctx context.Context, id string) (models.QuickView, error) {
	var q models.QuickView
	err := c.doJSON(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id)+"/quick-view", nil, &q)
	return q, err
}

// SyncCart pushes the full item list and returns the server's merged state.
func (c *Client) SyncCart(ctx context.Context, items []models.CartItem) (models.CartSync, error) {
	var out models.CartSync
	err := c.doJSON(ctx, http.MethodPost, "/api/cart/sync", models.CartSync{Items: items}, &out)
	return out, err
}

func (c *Client) FetchCart(ctx context.Context) (models.CartSync, error) {
	var out models.CartSync
	err := c.doJSON(ctx, http.MethodGet, "/api/cart", nil, &out)
	return out, err
}

func (c *Client) AuthCheck(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/check", nil, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", creds, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// FetchList returns the "wishlist" or "compare" ids.
func (c *Client) FetchList(ctx context.Context, kind string) ([]string, error) {
	var l models.IDList
	if err := c.doJSON(ctx, http.MethodGet, "/api/"+kind, nil, &l); err != nil {
		return nil, err
	}
	return l.IDs, nil
}

func (c *Client) PutList(ctx context.Context, kind string, ids []string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/"+kind, models.IDList{IDs: ids}, nil)
}

func (c *Client) Track(ctx context.Context, ev models.AnalyticsEvent) error {
	return c.doJSON(ctx, http.MethodPost, "/api/analytics/track", ev, nil)
}

func (c *Client) UnreadNotifications(ctx context.Context) ([]models.Notification, error) {
	var ns []models.Notification
	err := c.doJSON(ctx, http.MethodGet, "/api/notifications/unread", nil, &ns)
	return ns, err
}

// FetchPage returns the raw HTML at ref.
func (c *Client) FetchPage(ctx context.Context, ref string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, ref, nil, "")
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}
	return string(data), nil
}

// FormResult is the JSON an AJAX form endpoint answers with.
type FormResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Redirect  string            `json:"redirect,omitempty"`
	ResetForm bool              `json:"resetForm,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// SubmitForm posts url-encoded values to action.
func (c *Client) SubmitForm(ctx context.Context, method, action string, values url.Values) (FormResult, error) {
	if method == "" {
		method = http.MethodPost
	}
	req, err := c.newRequest(ctx, strings.ToUpper(method), action, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return FormResult{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return FormResult{}, err
	}
	defer resp.Body.Close()
	var out FormResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return FormResult{}, fmt.Errorf("decode form result: %w", err)
	}
	return out, nil
}
