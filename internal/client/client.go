// Package client speaks the record store HTTP contract and satisfies
// types.RecordStore.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellmoss/appraisal-generator/internal/httpx"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// APIKeyHeader carries the shared credential.
const APIKeyHeader = "X-API-KEY"

const appraisalsPath = "/api/appraisals"

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// Client is a types.RecordStore backed by a remote record store server.
// Requests are sent once; failures are not retried.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  *slog.Logger
}

var _ types.RecordStore = (*Client)(nil)

// New returns a client for the server at baseURL that authenticates with
// apiKey. An empty apiKey fails every call with types.ErrUnauthorized
// before any request is made.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
		Logger:  slog.Default(),
	}
}

// Create posts rec as a new record. Server-owned fields are stripped.
func (c *Client) Create(ctx context.Context, rec types.AppraisalRecord) (types.CreateResult, error) {
	var out types.CreateResult
	err := c.do(ctx, "create", http.MethodPost, appraisalsPath, rec.WithoutServerFields(), http.StatusCreated, &out)
	return out, err
}

// Get fetches the full record stored under id.
func (c *Client) Get(ctx context.Context, id string) (types.AppraisalRecord, error) {
	if id == "" {
		return types.AppraisalRecord{}, types.ErrInvalidID
	}
	var out types.AppraisalRecord
	err := c.do(ctx, "get", http.MethodGet, recordPath(id), nil, http.StatusOK, &out)
	return out, err
}

// Update replaces the record stored under id.
func (c *Client) Update(ctx context.Context, id string, rec types.AppraisalRecord) (types.UpdateResult, error) {
	if id == "" {
		return types.UpdateResult{}, types.ErrInvalidID
	}
	var out types.UpdateResult
	err := c.do(ctx, "update", http.MethodPut, recordPath(id), rec, http.StatusOK, &out)
	return out, err
}

// Delete removes the record stored under id.
func (c *Client) Delete(ctx context.Context, id string) (types.DeleteResult, error) {
	if id == "" {
		return types.DeleteResult{}, types.ErrInvalidID
	}
	var out types.DeleteResult
	err := c.do(ctx, "delete", http.MethodDelete, recordPath(id), nil, http.StatusOK, &out)
	return out, err
}

// List returns the summaries of every stored record, newest first.
func (c *Client) List(ctx context.Context) ([]types.Summary, error) {
	out := []types.Summary{}
	err := c.do(ctx, "list", http.MethodGet, appraisalsPath, nil, http.StatusOK, &out)
	return out, err
}

func recordPath(id string) string {
	return appraisalsPath + "/" + url.PathEscape(id)
}

// do sends one request and decodes a successful response into out. Failures
// map onto the types error taxonomy; nothing is retried.
func (c *Client) do(ctx context.Context, op, method, path string, body any, want int, out any) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%s: %w: no API key configured", op, types.ErrUnauthorized)
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set(APIKeyHeader, c.APIKey)
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().Warn("record store request failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %v", op, types.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return c.statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decoding response: %v", op, types.ErrTransient, err)
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	body := httpx.DecodeError(resp.Body)
	msg := body.Error.Message
	if msg == "" {
		msg = resp.Status
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		kind = types.ErrValidation
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = types.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		kind = types.ErrNotFound
	default:
		kind = types.ErrTransient
		c.logger().Error("record store returned an error", "op", op, "status", resp.StatusCode, "message", msg)
	}
	return fmt.Errorf("%s: %w: %s", op, kind, msg)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
