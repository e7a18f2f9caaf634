package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"postcardgo/pkg/config"
)

func TestScheduler_TickFiresEligibleJobs(t *testing.T) {
	s := NewScheduler(config.DefaultConfig())

	var fired int32
	s.AddJob(NewIntervalJob("eager", 0, func(ctx context.Context) {
		atomic.AddInt32(&fired, 1)
	}))

	never := NewIntervalJob("held", time.Hour, func(ctx context.Context) {
		atomic.AddInt32(&fired, 100)
	})
	never.firstRun = false
	never.lastTime = time.Now()
	s.AddJob(never)

	s.tick(context.Background(), time.Now())

	// Jobs run on their own goroutine
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_StartStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scheduler.TickInterval = config.Duration(10 * time.Millisecond)

	s := NewScheduler(cfg)

	var ticks int32
	s.AddJob(NewIntervalJob("count", 0, func(ctx context.Context) {
		atomic.AddInt32(&ticks, 1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
