package stock

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"postcardgo/pkg/config"
	"postcardgo/pkg/imagegen"
	"postcardgo/pkg/request"
)

// Provider implements imagegen.Provider against a keyless stock-photo service.
// It is the last resort when generative providers are down: the images are
// real photographs matched by keyword, not renderings of the prompt.
//
// The service answers with a redirect to the actual image, which the request
// client follows.
type Provider struct {
	baseURL  string
	minBytes int64
	client   *request.Client
}

// NewProvider creates a new stock-photo provider.
func NewProvider(cfg config.StockConfig, minBytes int64, client *request.Client) *Provider {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://loremflickr.com"
	}
	return &Provider{
		baseURL:  base,
		minBytes: minBytes,
		client:   client,
	}
}

// Fetch downloads one keyword-matched photo into destDir.
func (p *Provider) Fetch(ctx context.Context, req *imagegen.Request, destDir string) (string, error) {
	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = []string{"travel"}
	}

	// lock pins the result so different seeds yield different photos
	u := fmt.Sprintf("%s/%d/%d/%s?lock=%d",
		p.baseURL, req.Width, req.Height, url.PathEscape(strings.Join(keywords, ",")), req.Seed)

	path, err := p.client.Download(ctx, u, destDir, "stock", "jpg", p.minBytes)
	if err != nil {
		return "", fmt.Errorf("stock photo fetch failed: %w", err)
	}
	return path, nil
}
