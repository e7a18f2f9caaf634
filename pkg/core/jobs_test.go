package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseJob_TryLock(t *testing.T) {
	b := NewBaseJob("test")
	assert.Equal(t, "test", b.Name())

	assert.True(t, b.TryLock())
	assert.False(t, b.TryLock(), "second lock must fail while held")

	b.Unlock()
	assert.True(t, b.TryLock())
}

func TestIntervalJob_FiresOnSchedule(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	j := NewIntervalJob("tick", time.Hour, func(ctx context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	now := time.Now()
	assert.True(t, j.ShouldFire(now), "first evaluation fires immediately")

	j.Run(context.Background())
	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()

	assert.False(t, j.ShouldFire(time.Now()), "interval not yet elapsed")
	assert.True(t, j.ShouldFire(time.Now().Add(2*time.Hour)))
}

func TestIntervalJob_SkipsWhileRunning(t *testing.T) {
	j := NewIntervalJob("busy", 0, func(ctx context.Context) {})

	j.TryLock()
	assert.False(t, j.ShouldFire(time.Now()))
	j.Unlock()

	assert.True(t, j.ShouldFire(time.Now()))
}
