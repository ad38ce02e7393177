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

	"restaurants/internal/shared"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	ServerURL string
	HTTP      *http.Client
}

func New(cfg *shared.ClientConfig) *Client {
	return &Client{
		ServerURL: cfg.ServerURL,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) List(ctx context.Context) ([]shared.Restaurant, error) {
	var out []shared.Restaurant
	if err := c.do(ctx, http.MethodGet, "/restaurants", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (shared.Restaurant, error) {
	var out shared.Restaurant
	err := c.do(ctx, http.MethodGet, restaurantPath(id), nil, http.StatusOK, &out)
	return out, err
}

// Create posts r without its id; the server assigns one.
func (c *Client) Create(ctx context.Context, r shared.Restaurant) (shared.Restaurant, error) {
	body := struct {
		Name       string `json:"name"`
		Cuisine    string `json:"cuisine"`
		HasTakeout bool   `json:"hasTakeout"`
	}{r.Name, r.Cuisine, r.HasTakeout}

	var out shared.Restaurant
	err := c.do(ctx, http.MethodPost, "/restaurants", body, http.StatusCreated, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id string, patch shared.RestaurantPatch) error {
	return c.do(ctx, http.MethodPatch, restaurantPath(id), patch, http.StatusNoContent, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, restaurantPath(id), nil, http.StatusNoContent, nil)
}

func restaurantPath(id string) string {
	return "/restaurants/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	u := strings.TrimRight(c.ServerURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var er shared.ErrorResponse
		if json.Unmarshal(b, &er) != nil || er.Message == "" {
			er.Message = strings.TrimSpace(string(b))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: er.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
