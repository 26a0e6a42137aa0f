package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"qualis/internal/platform/middleware"
	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
)

// Client talks to an external records API: JSON over HTTP under /api, tenant
// identity forwarded in the X-Tenant-Id header. Errors are tagged
// "[records:<operation>] <type>: ..." so callers can tell which call failed.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a records client for the given base URL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Fetch(ctx context.Context, typ Type) ([]json.RawMessage, error) {
	body, err := c.do(ctx, "fetch", http.MethodGet, c.collectionURL(typ), typ, nil)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("[records:fetch] %s: %w", typ, err)
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	return c.do(ctx, "create", http.MethodPost, c.collectionURL(typ), typ, record)
}

func (c *Client) Update(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	return c.do(ctx, "update", http.MethodPut, c.recordURL(typ, id), typ, record)
}

func (c *Client) Delete(ctx context.Context, typ Type, id string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, c.recordURL(typ, id), typ, nil)
	return err
}

func (c *Client) collectionURL(typ Type) string {
	return fmt.Sprintf("%s/api/%s", c.baseURL, typ)
}

func (c *Client) recordURL(typ Type, id string) string {
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL, typ, id)
}

func (c *Client) do(ctx context.Context, op, method, url string, typ Type, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("[records:%s] %s: %w", op, typ, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("[records:%s] %s: %w", op, typ, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenant := requestcontext.TenantID(ctx); tenant != "" {
		req.Header.Set(middleware.TenantHeader, tenant.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[records:%s] %s: %w", op, typ, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("[records:%s] %s: %w", op, typ, sentinel.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("[records:%s] %s: request failed with status %d: %w",
			op, typ, resp.StatusCode, sentinel.ErrUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[records:%s] %s: %w", op, typ, err)
	}
	return data, nil
}
