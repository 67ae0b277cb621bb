package worker

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Adarsh-Kmt/FairGroupMutex/tracing"
	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AccessController is the part of the fair group mutex a worker drives.
type AccessController interface {
	RequestAccessContext(ctx context.Context, g types.Group) error
	ReleaseAccess(g types.Group)
}

/*
Worker repeatedly thinks, requests the shared resource for its group, uses it and releases it.
It holds no synchronization logic of its own.
*/
type Worker struct {
	WorkerId int
	Group    types.Group

	// Iterations bounds the number of access cycles. 0 runs until the context is done.
	Iterations int

	Schedule Schedule
	Clock    clock.Clock

	ac     AccessController
	logger *zap.SugaredLogger
	cycles atomic.Int64
}

func SpawnWorker(workerId int, group types.Group, ac AccessController, schedule Schedule, lgr *zap.SugaredLogger) *Worker {

	if lgr == nil {
		lgr = zap.NewNop().Sugar()
	}

	return &Worker{
		WorkerId: workerId,
		Group:    group,
		Schedule: schedule,
		Clock:    clock.New(),
		ac:       ac,
		logger:   lgr,
	}
}

// Run loops until Iterations cycles are done or ctx ends. Cancellation is not an error.
// A worker that is inside the resource when ctx ends still releases it before returning.
func (w *Worker) Run(ctx context.Context) error {

	w.logger.Debugf("worker %d of group %s started", w.WorkerId, w.Group)

	for w.Iterations == 0 || w.Cycles() < w.Iterations {

		if !w.sleep(ctx, w.Schedule.ThinkTime()) {
			break
		}

		if err := w.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.Wrapf(err, "worker %d of group %s", w.WorkerId, w.Group)
		}
	}

	w.logger.Debugf("worker %d of group %s stopped after %d cycles", w.WorkerId, w.Group, w.Cycles())
	return nil
}

func (w *Worker) Cycles() int {
	return int(w.cycles.Load())
}

func (w *Worker) cycle(ctx context.Context) error {

	ctx, span := tracing.StartSpan(ctx, "worker.cycle")
	span.WithAttributes(map[string]string{
		"group":  w.Group.String(),
		"worker": strconv.Itoa(w.WorkerId),
	})

	requestedAt := w.Clock.Now()

	if err := w.ac.RequestAccessContext(ctx, w.Group); err != nil {
		tracing.EndSpan(span, err)
		return err
	}
	span.AddEvent("admitted")

	w.logger.Debugf("worker %d of group %s admitted after %s", w.WorkerId, w.Group, w.Clock.Since(requestedAt))

	w.sleep(ctx, w.Schedule.UseTime())

	w.ac.ReleaseAccess(w.Group)
	w.cycles.Add(1)

	tracing.EndSpan(span, nil)
	return nil
}

// sleep waits for d on the worker's clock. It reports false if ctx ended first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {

	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := w.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
