package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(now time.Time) bool
	Run(ctx context.Context)
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

func (b *BaseJob) isRunning() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// IntervalJob fires when time elapsed exceeds threshold.
type IntervalJob struct {
	BaseJob
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context)
	firstRun  bool
}

func NewIntervalJob(name string, threshold time.Duration, action func(context.Context)) *IntervalJob {
	return &IntervalJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
		firstRun:  true,
	}
}

func (j *IntervalJob) ShouldFire(now time.Time) bool {
	if j.isRunning() {
		return false
	}

	if j.firstRun {
		return true
	}

	return now.Sub(j.lastTime) >= j.threshold
}

func (j *IntervalJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastTime = time.Now()
	j.firstRun = false

	j.action(ctx)
}
