package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/samber/do"
)

// ErrBlankQuery is returned when the query trims to nothing. Callers are
// expected to reject blank input before reaching the client; no request
// is issued either way.
var ErrBlankQuery = errors.New("query must not be blank")

// TransportError is a network failure or a non-2xx response from the
// calculation service. Detail carries the server-supplied message when
// the error body contained one.
type TransportError struct {
	StatusCode int
	Detail     string
	cause      error
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("calculation request failed: %v", e.cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("calculation request failed (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("calculation request failed (%d)", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.cause
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Server.BaseURL, cfg.Server.Timeout()), nil
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Calculate issues a single POST /calculate carrying the trimmed query
// and, if present, the session identifier. It performs no retries.
func (c *Client) Calculate(ctx context.Context, query string, sessionID string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrBlankQuery
	}

	reqBody := Request{Query: query}
	if sessionID != "" {
		reqBody.SessionID = &sessionID
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody errorBody
		_ = json.Unmarshal(body, &errBody)

		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Detail:     errBody.Detail,
		}
	}

	var result Response
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}
