package tour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"postcardgo/pkg/config"
	"postcardgo/pkg/model"
)

// ErrUpstreamTimeout marks a poll that gave up before the tour was complete.
// It is non-fatal: the accompanying tour carries whatever partial state the
// last successful poll returned, and the caller proceeds with it.
var ErrUpstreamTimeout = errors.New("upstream generation timed out")

// Source abstracts the tour service for the poller.
type Source interface {
	GetTour(ctx context.Context, tourID string) (*model.Tour, error)
}

// Poller repeatedly queries an asynchronously-populated tour until enough
// narrations exist or the wait budget runs out. The upstream service has no
// push channel, so fixed-interval polling is the only option.
type Poller struct {
	source        Source
	interval      time.Duration
	maxWait       time.Duration
	minNarrations int
}

// NewPoller creates a poller with intervals from config.
func NewPoller(cfg *config.TourConfig, source Source) *Poller {
	return &Poller{
		source:        source,
		interval:      time.Duration(cfg.PollInterval),
		maxWait:       time.Duration(cfg.MaxWait),
		minNarrations: cfg.MinNarrations,
	}
}

// WaitForReady polls until the tour has at least the required number of
// complete narrations. expectedStops is the number of stops the tour was
// requested with; the threshold is all of them unless min_narrations is set
// lower in the config. When expectedStops is unknown (<= 0), the stop list
// the upstream reports becomes the target, so a tour it hasn't populated yet
// never counts as ready.
//
// On timeout it returns the last fetched state with Ready=false and an error
// wrapping ErrUpstreamTimeout. Context cancellation is returned as-is.
func (p *Poller) WaitForReady(ctx context.Context, tourID string, expectedStops int) (*model.Tour, error) {
	deadline := time.Now().Add(p.maxWait)
	var last *model.Tour

	for attempt := 1; ; attempt++ {
		t, err := p.source.GetTour(ctx, tourID)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			// Transient fetch failures just burn one interval
			slog.Warn("Tour poll failed", "tour", tourID, "attempt", attempt, "error", err)
		} else {
			last = t
			required := p.threshold(expectedStops, t)
			done := t.NarratedCount()
			slog.Debug("Tour poll", "tour", tourID, "attempt", attempt, "narrated", done, "required", required)
			if required > 0 && done >= required {
				t.Ready = true
				return t, nil
			}
		}

		if time.Now().Add(p.interval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	if last != nil {
		last.Ready = false
		slog.Warn("Tour not complete within wait budget, proceeding with partial data",
			"tour", tourID, "narrated", last.NarratedCount(), "required", p.threshold(expectedStops, last))
	}
	return last, fmt.Errorf("tour %s after %s: %w", tourID, p.maxWait, ErrUpstreamTimeout)
}

// threshold resolves how many narrations count as ready for this poll.
// A zero result means the tour has nothing to assemble yet.
func (p *Poller) threshold(expectedStops int, t *model.Tour) int {
	required := expectedStops
	if required <= 0 && t != nil {
		required = len(t.Stops)
	}
	if p.minNarrations > 0 && p.minNarrations < required {
		required = p.minNarrations
	}
	return required
}
