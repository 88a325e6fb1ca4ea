// Package admin wraps the dish administration endpoints of the calorie
// service. These are plain request/response calls with no session
// semantics.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/samber/oops"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Server.AdminBaseURL, cfg.Server.Timeout()), nil
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *Client) Dishes(ctx context.Context) ([]Dish, error) {
	var result []Dish
	if err := c.getJSON(ctx, "/dishes", &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) Dish(ctx context.Context, name string) (*Dish, error) {
	var result Dish
	if err := c.getJSON(ctx, "/dishes/"+url.PathEscape(name), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) MissingDishes(ctx context.Context) ([]MissingDish, error) {
	var result []MissingDish
	if err := c.getJSON(ctx, "/missing-dishes", &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) SearchUsda(ctx context.Context, query string) ([]UsdaIngredient, error) {
	var result []UsdaIngredient
	if err := c.getJSON(ctx, "/usda/search?q="+url.QueryEscape(query), &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) AddDish(ctx context.Context, req AddDishRequest) (*Dish, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, oops.Errorf("invalid dish: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dish: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dishes", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, oops.Errorf("failed to add dish: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, oops.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, oops.Errorf("add dish failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result Dish
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return oops.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return oops.Errorf("request to %s failed with status %d", path, resp.StatusCode)
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}

	return nil
}
