package tour

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"postcardgo/pkg/config"
	"postcardgo/pkg/model"
	"postcardgo/pkg/request"
)

// Client handles tour service API interactions.
type Client struct {
	request     *request.Client
	key         string
	APIEndpoint string // Base URL, overridable for testing
}

// NewClient creates a new tour service client.
func NewClient(cfg *config.TourConfig, r *request.Client) *Client {
	return &Client{
		request:     r,
		key:         cfg.Key,
		APIEndpoint: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// GetTour fetches the current state of a tour, including whatever stops and
// narrations exist at this moment. The response is never cached: readiness
// polling needs fresh state on every call.
func (c *Client) GetTour(ctx context.Context, tourID string) (*model.Tour, error) {
	u := fmt.Sprintf("%s/tours/%s", c.APIEndpoint, tourID)

	var headers map[string]string
	if c.key != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.key}
	}

	body, err := c.request.GetWithHeaders(ctx, u, headers, "")
	if err != nil {
		return nil, fmt.Errorf("tour fetch failed: %w", err)
	}

	var t model.Tour
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("failed to decode tour response: %w", err)
	}
	if t.ID == "" {
		t.ID = tourID
	}
	return &t, nil
}
