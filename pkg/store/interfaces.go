package store

import (
	"context"
	"time"
)

// CacheStore handles generic key-value caching of provider responses.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// PendingTour is a tour queued for video assembly.
type PendingTour struct {
	TourID        string
	Destination   string
	Topic         string
	ExpectedStops int
	EnqueuedAt    time.Time
}

// RunRecord is the persisted outcome of one stop assembly.
type RunRecord struct {
	ID        string
	TourID    string
	StopName  string
	Success   bool
	VideoPath string
	Error     string
	CreatedAt time.Time
}

// TourQueueStore holds tours awaiting assembly. It replaces the in-memory
// scheduler maps of earlier iterations with an explicitly-owned store.
type TourQueueStore interface {
	EnqueueTour(ctx context.Context, t *PendingTour) error
	ListPendingTours(ctx context.Context) ([]*PendingTour, error)
	RemoveTour(ctx context.Context, tourID string) error
}

// RunStore persists assembly outcomes for the caller's retry decisions.
type RunStore interface {
	SaveRun(ctx context.Context, r *RunRecord) error
	ListRunsByTour(ctx context.Context, tourID string) ([]*RunRecord, error)
}

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	CacheStore
	TourQueueStore
	RunStore

	// Close closes the store connection.
	Close() error
}
