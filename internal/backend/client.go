// Package backend is an HTTP client for the external counseling and
// opportunities backend.
package backend

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
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed backend response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// maxErrorBody bounds how much of an error body is read into a message.
const maxErrorBody = 4 << 10

// Client talks to the external backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// VerifyToken exchanges a bearer token for the caller's identity.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.VerifiedUser, error) {
	var out domain.VerifiedUser
	if err := c.do(ctx, "Token verification", http.MethodGet, "/verify-token", token, nil, &out); err != nil {
		return nil, err
	}
	if out.UID == "" {
		return nil, fmt.Errorf("token verification: %w: missing uid", ErrMalformedResponse)
	}
	return &out, nil
}

// Counsel requests a mentor reply.
func (c *Client) Counsel(ctx context.Context, token string, req CounselingRequest) (*CounselingResponse, error) {
	var out CounselingResponse
	if err := c.do(ctx, "Counselling request", http.MethodPost, "/counselling", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchOpportunities runs a filtered opportunity search.
func (c *Client) SearchOpportunities(ctx context.Context, token string, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, "Search", http.MethodPost, "/api/opportunities/search", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOpportunity fetches a single opportunity.
func (c *Client) GetOpportunity(ctx context.Context, token, id string) (*domain.Opportunity, error) {
	var out domain.Opportunity
	path := "/api/opportunities/" + url.PathEscape(id)
	if err := c.do(ctx, "Fetch opportunity", http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveOpportunity bookmarks an opportunity for uid.
func (c *Client) SaveOpportunity(ctx context.Context, token, uid, opportunityID string) (*SuccessResponse, error) {
	var out SuccessResponse
	path := "/api/users/" + url.PathEscape(uid) + "/saved_opportunities"
	body := SaveOpportunityRequest{OpportunityID: opportunityID}
	if err := c.do(ctx, "Save", http.MethodPost, path, token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommended lists opportunities recommended for uid.
func (c *Client) Recommended(ctx context.Context, token, uid string) (*RecommendedResponse, error) {
	var out RecommendedResponse
	path := "/api/users/" + url.PathEscape(uid) + "/recommended"
	if err := c.do(ctx, "Recommendations", http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the backend answers on /health.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "Health check", http.MethodGet, "/health", "", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", "op", op, "path", path, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage extracts the provider-supplied message, falling back to the
// HTTP status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var detail struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(raw, &detail) == nil {
		switch {
		case detail.Detail != "":
			msg = detail.Detail
		case detail.Error != "":
			msg = detail.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
