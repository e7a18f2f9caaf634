package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"postcardgo/pkg/assembly"
	"postcardgo/pkg/model"
	"postcardgo/pkg/store"
	"postcardgo/pkg/tour"
)

// TourWaiter blocks until a tour's narrations are complete (or the wait
// budget runs out). Satisfied by tour.Poller.
type TourWaiter interface {
	WaitForReady(ctx context.Context, tourID string, expectedStops int) (*model.Tour, error)
}

// StopAssembler turns one stop into a video. Satisfied by assembly.Assembler.
type StopAssembler interface {
	Assemble(ctx context.Context, tourDestination string, stop *model.StopDescriptor, opts assembly.Options) model.AssemblyResult
}

// TourQueue is the persistence the job needs: the pending queue plus the
// run ledger.
type TourQueue interface {
	store.TourQueueStore
	store.RunStore
}

// TourJob drains the pending-tour queue: for each queued tour it waits for
// the upstream narrations, assembles every stop sequentially, records the
// outcomes, and dequeues the tour. Tours are processed one at a time; the
// encoder is the bottleneck and parallel ffmpeg runs just thrash.
type TourJob struct {
	BaseJob
	queue     TourQueue
	waiter    TourWaiter
	assembler StopAssembler
}

func NewTourJob(queue TourQueue, waiter TourWaiter, assembler StopAssembler) *TourJob {
	return &TourJob{
		BaseJob:   NewBaseJob("TourAssembly"),
		queue:     queue,
		waiter:    waiter,
		assembler: assembler,
	}
}

func (j *TourJob) ShouldFire(now time.Time) bool {
	return !j.isRunning()
}

func (j *TourJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	pending, err := j.queue.ListPendingTours(ctx)
	if err != nil {
		slog.Error("TourJob: Failed to list pending tours", "error", err)
		return
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return
		}
		j.processTour(ctx, p)
	}
}

func (j *TourJob) processTour(ctx context.Context, p *store.PendingTour) {
	t, err := j.waiter.WaitForReady(ctx, p.TourID, p.ExpectedStops)

	partial := false
	switch {
	case err == nil:
		// Fully narrated
	case errors.Is(err, tour.ErrUpstreamTimeout):
		// The upstream ran out of time; whatever narrations exist are
		// good enough to ship
		if t == nil || t.NarratedCount() == 0 {
			slog.Error("TourJob: Tour never produced a narration, dropping", "tour", p.TourID)
			j.recordFailure(ctx, p.TourID, "upstream produced no narrations before deadline")
			j.dequeue(ctx, p.TourID)
			return
		}
		partial = true
		slog.Warn("TourJob: Assembling partial tour", "tour", p.TourID,
			"narrated", t.NarratedCount(), "expected", p.ExpectedStops)
	default:
		// Transient (network down, context cancelled); keep the tour
		// queued and try again next tick
		slog.Warn("TourJob: Tour not ready, will retry", "tour", p.TourID, "error", err)
		return
	}

	destination := t.Destination
	if destination == "" {
		destination = p.Destination
	}

	success, failed := 0, 0
	for i := range t.Stops {
		stop := &t.Stops[i]
		if partial && stop.AudioURL == "" && stop.NarrationText == "" {
			continue
		}

		res := j.assembler.Assemble(ctx, destination, stop, assembly.Options{})
		if res.Success {
			success++
		} else {
			failed++
		}

		if err := j.queue.SaveRun(ctx, &store.RunRecord{
			ID:        uuid.NewString(),
			TourID:    p.TourID,
			StopName:  stop.Name,
			Success:   res.Success,
			VideoPath: res.VideoPath,
			Error:     res.Error,
		}); err != nil {
			slog.Error("TourJob: Failed to record run", "tour", p.TourID, "stop", stop.Name, "error", err)
		}
	}

	slog.Info("TourJob: Tour assembled", "tour", p.TourID, "videos", success, "failed", failed)
	j.dequeue(ctx, p.TourID)
}

func (j *TourJob) recordFailure(ctx context.Context, tourID, msg string) {
	if err := j.queue.SaveRun(ctx, &store.RunRecord{
		ID:     uuid.NewString(),
		TourID: tourID,
		Error:  msg,
	}); err != nil {
		slog.Error("TourJob: Failed to record run", "tour", tourID, "error", err)
	}
}

func (j *TourJob) dequeue(ctx context.Context, tourID string) {
	if err := j.queue.RemoveTour(ctx, tourID); err != nil {
		slog.Error("TourJob: Failed to dequeue tour", "tour", tourID, "error", err)
	}
}
