// Package client talks to the deployment API. The console works against a
// remote endpoint or against the in-process standalone API; both speak the
// same contract.
package client

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
	"time"

	"github.com/decoryard/decoryard/internal/model"
)

// ErrItemUnavailable is returned when the server refuses a connection because
// the item is already wired somewhere else (or its source port is taken).
// The pages translate it into an operator-facing hint.
var ErrItemUnavailable = errors.New("item unavailable: already deployed or port taken")

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// connectionFailedMessage is the literal wire message the API uses for a
// rejected connection. It is rewritten to ErrItemUnavailable so callers can
// branch on it.
const connectionFailedMessage = "Connection Creation Failed"

// Client is a deployment API client. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the API's response wrapper. Some deployments of the API
// return bare payloads instead, so decoding falls back to the raw body.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do performs a request and decodes the response payload into out. Both the
// {"success": ..., "data": ...} envelope and a bare JSON payload are accepted.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	enveloped := json.Unmarshal(raw, &env) == nil && env.Success != nil

	if resp.StatusCode >= 400 || (enveloped && !*env.Success) {
		return c.apiError(resp.StatusCode, env)
	}

	if out == nil {
		return nil
	}
	payload := raw
	if enveloped && env.Data != nil {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError builds the error for a failed call: the server's error or message
// field when present, otherwise the HTTP status text.
func (c *Client) apiError(status int, env envelope) error {
	message := env.Error
	if message == "" {
		message = env.Message
	}
	if message == connectionFailedMessage {
		return ErrItemUnavailable
	}
	if status == http.StatusNotFound {
		if message != "" {
			return fmt.Errorf("%s: %w", message, ErrNotFound)
		}
		return ErrNotFound
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("api: %s (status %d)", message, status)
}

// ListItems returns catalog items, optionally filtered by status and class.
func (c *Client) ListItems(ctx context.Context, status, class string) ([]model.Item, error) {
	path := "/items"
	var params []string
	if status != "" {
		params = append(params, "status="+status)
	}
	if class != "" {
		params = append(params, "class="+class)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var items []model.Item
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one item by ID.
func (c *Client) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+id, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem registers a new catalog item.
func (c *Client) CreateItem(ctx context.Context, item *model.Item) (*model.Item, error) {
	var created model.Item
	if err := c.do(ctx, http.MethodPost, "/items", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateItem saves an item's editable metadata.
func (c *Client) UpdateItem(ctx context.Context, item *model.Item) (*model.Item, error) {
	var updated model.Item
	if err := c.do(ctx, http.MethodPut, "/items/"+item.ID, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UploadItemPhoto sends a raw image for an item.
func (c *Client) UploadItemPhoto(ctx context.Context, id string, photo io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/items/"+id+"/image", photo)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("uploading photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return c.apiError(resp.StatusCode, env)
	}
	return nil
}

// ItemPhoto fetches an item's photo. Returns the image bytes and MIME type,
// or ErrNotFound when no photo has been uploaded.
func (c *Client) ItemPhoto(ctx context.Context, id string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items/"+id+"/image", nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return nil, "", c.apiError(resp.StatusCode, env)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading photo: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// ListDeployments returns all deployments, optionally filtered by status.
func (c *Client) ListDeployments(ctx context.Context, status string) ([]model.Deployment, error) {
	path := "/deployments"
	if status != "" {
		path += "?status=" + status
	}

	var deployments []model.Deployment
	if err := c.do(ctx, http.MethodGet, path, nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// GetDeployment returns one deployment, fully assembled.
func (c *Client) GetDeployment(ctx context.Context, id string) (*model.Deployment, error) {
	var d model.Deployment
	if err := c.do(ctx, http.MethodGet, "/deployments/"+id, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeployment creates a deployment for a season and year with one
// initial zone.
func (c *Client) CreateDeployment(ctx context.Context, year int, season, zone string) (*model.Deployment, error) {
	var d model.Deployment
	body := map[string]any{"year": year, "season": season, "zone": zone}
	if err := c.do(ctx, http.MethodPost, "/deployments", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// StartSetup moves a deployment into in_progress.
func (c *Client) StartSetup(ctx context.Context, id string) (*model.Deployment, error) {
	var d model.Deployment
	if err := c.do(ctx, http.MethodPost, "/deployments/"+id+"/start-setup", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// AddZone ensures a zone exists on a deployment.
func (c *Client) AddZone(ctx context.Context, id, zone string) (*model.Deployment, error) {
	var d model.Deployment
	body := map[string]string{"zone": zone}
	if err := c.do(ctx, http.MethodPost, "/deployments/"+id+"/locations", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// AddConnection records one connection in a zone. A rejected connection
// surfaces as ErrItemUnavailable.
func (c *Client) AddConnection(ctx context.Context, deploymentID, zone string, conn *model.Connection) (*model.Connection, error) {
	var created model.Connection
	path := fmt.Sprintf("/deployments/%s/locations/%s/connections", deploymentID, url.PathEscape(zone))
	if err := c.do(ctx, http.MethodPost, path, conn, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// sessionPayload accepts the contract's {"session": {...}} wrapper as well as
// a bare session object, mirroring the envelope fallback in do.
type sessionPayload struct {
	model.WorkSession
	Session *model.WorkSession `json:"session"`
}

func (p *sessionPayload) unwrap() *model.WorkSession {
	if p.Session != nil {
		return p.Session
	}
	return &p.WorkSession
}

// StartSession begins a work session in a zone.
func (c *Client) StartSession(ctx context.Context, deploymentID, zone, notes string) (*model.WorkSession, error) {
	var payload sessionPayload
	path := fmt.Sprintf("/deployments/%s/locations/%s/sessions", deploymentID, url.PathEscape(zone))
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"notes": notes}, &payload); err != nil {
		return nil, err
	}
	return payload.unwrap(), nil
}

// EndSession closes an active work session.
func (c *Client) EndSession(ctx context.Context, deploymentID, zone, sessionID, notes string) (*model.WorkSession, error) {
	var payload sessionPayload
	path := fmt.Sprintf("/deployments/%s/locations/%s/sessions/%s/end", deploymentID, url.PathEscape(zone), sessionID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"notes": notes}, &payload); err != nil {
		return nil, err
	}
	return payload.unwrap(), nil
}

// GetReviewData returns the setup summary for a deployment.
func (c *Client) GetReviewData(ctx context.Context, id string) (*model.ReviewSummary, error) {
	var review model.ReviewSummary
	if err := c.do(ctx, http.MethodGet, "/deployments/"+id+"/review", nil, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// CompleteSetup finishes a deployment and reports how many unique items were
// deployed.
func (c *Client) CompleteSetup(ctx context.Context, id string) (int, error) {
	var result struct {
		ItemsDeployed int `json:"items_deployed"`
	}
	if err := c.do(ctx, http.MethodPost, "/deployments/"+id+"/complete-setup", nil, &result); err != nil {
		return 0, err
	}
	return result.ItemsDeployed, nil
}
