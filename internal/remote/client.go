package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crewtime/internal/domain"
)

// Collection keys as exposed by the resource endpoint.
const (
	Users         = "users"
	Projects      = "projects"
	Tasks         = "tasks"
	Timesheets    = "timesheets"
	LeaveRequests = "leave_requests"
	Notifications = "notifications"
	BestEmployees = "best_employees"
)

// Client is a minimal crewtime HTTP API client. The bearer credential is
// attached to every call once set; it is issued by Login or supplied by
// an external session collaborator.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/api",
		Timeout:  10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Session is the result of a successful login.
type Session struct {
	Token string       `json:"token"`
	User  domain.Actor `json:"user"`
}

// Login authenticates and stores the bearer credential on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "login", body, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// Resource is the typed CRUD surface of one collection.
type Resource[T any] struct {
	Client *Client
	Key    string
}

// NewResource binds a collection key to a client.
func NewResource[T any](c *Client, key string) Resource[T] {
	return Resource[T]{Client: c, Key: key}
}

// List fetches the authoritative collection.
func (r Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.Client.do(ctx, http.MethodGet, r.Key, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create posts a new item and returns the stored record; the server may
// substitute its own id for the client-provisional one.
func (r Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var resp T
	err := r.Client.do(ctx, http.MethodPost, r.Key, item, &resp)
	return resp, err
}

// Update replaces the item with the given id.
func (r Resource[T]) Update(ctx context.Context, id int64, item T) error {
	return r.Client.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", r.Key, id), item, nil)
}

// Delete removes the item with the given id.
func (r Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.Client.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", r.Key, id), nil, nil)
}

// Events fetches the audit feed after the given cursor.
func (c *Client) Events(ctx context.Context, after int64, limit int, collection string) ([]domain.Event, error) {
	endpoint := fmt.Sprintf("events?after=%d", after)
	if limit > 0 {
		endpoint += fmt.Sprintf("&limit=%d", limit)
	}
	if collection != "" {
		endpoint += "&collection=" + collection
	}
	var items []domain.Event
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// EventsHead returns the latest audit event id, the natural cursor for a
// tail that only wants events from this point on.
func (c *Client) EventsHead(ctx context.Context, collection string) (int64, error) {
	endpoint := "events/head"
	if collection != "" {
		endpoint += "?collection=" + collection
	}
	var head domain.EventHead
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &head); err != nil {
		return 0, err
	}
	return head.ID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	p := strings.Trim(c.BasePath, "/")
	if p == "" {
		return base
	}
	return base + "/" + p
}
