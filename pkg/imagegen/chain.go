package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"postcardgo/pkg/tracker"
)

// Chain wraps multiple image providers and handles fallbacks. Providers are
// tried in order; a FatalError disables the provider for the rest of the
// session, any other error just moves on to the next candidate.
type Chain struct {
	providers []Provider
	names     []string
	disabled  map[int]bool
	tracker   *tracker.Tracker
	mu        sync.RWMutex
}

// NewChain creates a fallback chain over the given providers.
func NewChain(providers []Provider, names []string, t *tracker.Tracker) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider required for fallback chain")
	}
	if len(providers) != len(names) {
		return nil, fmt.Errorf("provider count (%d) does not match name count (%d)", len(providers), len(names))
	}

	return &Chain{
		providers: providers,
		names:     names,
		disabled:  make(map[int]bool),
		tracker:   t,
	}, nil
}

// Fetch implements Provider by delegating along the chain.
func (c *Chain) Fetch(ctx context.Context, req *Request, destDir string) (string, error) {
	var lastErr error
	attempted := 0

	for i, p := range c.providers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		c.mu.RLock()
		isDisabled := c.disabled[i]
		c.mu.RUnlock()
		if isDisabled {
			continue
		}

		if attempted > 0 && c.tracker != nil {
			c.tracker.TrackFallback(c.names[i])
		}
		attempted++

		path, err := p.Fetch(ctx, req, destDir)
		if err == nil {
			return path, nil
		}

		lastErr = err
		if IsFatalError(err) {
			slog.Warn("Image provider fatal error, disabling for the session", "provider", c.names[i], "error", err)
			c.mu.Lock()
			c.disabled[i] = true
			c.mu.Unlock()
			continue
		}

		slog.Info("Image provider failed, falling back", "provider", c.names[i], "error", err)
	}

	if lastErr == nil {
		return "", ErrNoProviders
	}
	return "", fmt.Errorf("%w: %v", ErrNoProviders, lastErr)
}
