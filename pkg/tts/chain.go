package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"postcardgo/pkg/tracker"
)

// Chain wraps multiple TTS providers and handles fallbacks. Providers are
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
// names: names corresponding to the provider list, used for logs and stats.
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

// Synthesize implements Provider by delegating along the chain.
func (c *Chain) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
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

		format, err := p.Synthesize(ctx, text, voice, outputPath)
		if err == nil {
			if verr := verifyAudio(outputPath); verr != nil {
				slog.Warn("TTS output failed verification, falling back", "provider", c.names[i], "error", verr)
				lastErr = verr
				continue
			}
			return format, nil
		}

		lastErr = err
		if IsFatalError(err) {
			slog.Warn("TTS provider fatal error, disabling for the session", "provider", c.names[i], "error", err)
			c.mu.Lock()
			c.disabled[i] = true
			c.mu.Unlock()
			continue
		}

		slog.Info("TTS provider failed, falling back", "provider", c.names[i], "error", err)
	}

	if lastErr == nil {
		return "", fmt.Errorf("no active TTS provider available")
	}
	return "", fmt.Errorf("all TTS providers exhausted: %w", lastErr)
}

// verifyAudio rejects suspiciously small output files. Providers sometimes
// write an error payload with a success status.
func verifyAudio(outputPath string) error {
	fi, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("audio file missing: %w", err)
	}
	if fi.Size() < MinAudioSize {
		return fmt.Errorf("audio file too small: %d bytes", fi.Size())
	}
	return nil
}
