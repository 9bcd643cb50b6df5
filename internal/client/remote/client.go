// Package remote is the HTTP client of the inventory API used by shelfctl.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

const maxErrorBody = 64 << 10

// Client calls the inventory API on behalf of one user.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Client. A non-positive timeout means 15s.
func New(baseURL, token, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "remote"),
	}
}

// CreateOwned adds an owned product and returns the server's view of it.
func (c *Client) CreateOwned(ctx context.Context, req AddRequest) (*Owned, error) {
	var out Owned
	if err := c.do(ctx, http.MethodPost, "/api/v1/owned", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOwned applies user edits to an owned product.
func (c *Client) UpdateOwned(ctx context.Context, id uuid.UUID, req PatchRequest) (*Owned, error) {
	var out Owned
	if err := c.do(ctx, http.MethodPatch, "/api/v1/owned/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOwned fetches one owned product.
func (c *Client) GetOwned(ctx context.Context, id uuid.UUID) (*Owned, error) {
	var out Owned
	if err := c.do(ctx, http.MethodGet, "/api/v1/owned/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOwned removes an owned product.
func (c *Client) DeleteOwned(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/owned/"+id.String(), nil, nil)
}

// InferExpiry previews expiry inference without storing anything.
func (c *Client) InferExpiry(ctx context.Context, req InferRequest) (*Estimate, error) {
	var out Estimate
	if err := c.do(ctx, http.MethodPost, "/api/v1/expiry/infer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request. A nil in skips the body; a nil out discards the
// response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("remote: %s %s: %w: %w", method, path, domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "remote call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// APIError is a non-2xx response. It unwraps to the domain error matching
// the status code.
type APIError struct {
	Status  int
	Message string
	Fields  []domain.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		if len(e.Fields) > 0 {
			return domain.NewValidationErrors(e.Fields)
		}
		return domain.ErrValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusConflict:
		return domain.ErrAlreadyExists
	case e.Status == http.StatusTooManyRequests || e.Status >= 500:
		return domain.ErrStoreUnavailable
	}
	return nil
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return errors.Is(e, domain.ErrStoreUnavailable)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error  string              `json:"error"`
		Fields []domain.FieldError `json:"fields"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	}
	return apiErr
}
