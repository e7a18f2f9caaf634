package pollinations

import (
	"context"
	"fmt"
	"net/url"

	"postcardgo/pkg/config"
	"postcardgo/pkg/imagegen"
	"postcardgo/pkg/request"
)

// Provider implements imagegen.Provider for Pollinations.ai image generation.
// The endpoint is keyless: the prompt rides in the URL path and the response
// is the image itself.
// Format: https://image.pollinations.ai/prompt/{encoded_prompt}?params
type Provider struct {
	model    string
	minBytes int64
	client   *request.Client
}

// NewProvider creates a new Pollinations image provider.
func NewProvider(cfg config.PollinationsConfig, minBytes int64, client *request.Client) *Provider {
	model := cfg.Model
	if model == "" {
		model = "flux"
	}
	return &Provider{
		model:    model,
		minBytes: minBytes,
		client:   client,
	}
}

// Fetch generates one image and writes it into destDir.
func (p *Provider) Fetch(ctx context.Context, req *imagegen.Request, destDir string) (string, error) {
	u := fmt.Sprintf(
		"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		url.PathEscape(req.Prompt), req.Width, req.Height, url.QueryEscape(p.model), req.Seed,
	)

	path, err := p.client.Download(ctx, u, destDir, "pollinations", "jpg", p.minBytes)
	if err != nil {
		return "", fmt.Errorf("pollinations fetch failed: %w", err)
	}
	return path, nil
}
