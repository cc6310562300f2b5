package main

import (
	"context"
	"time"

	"pomegranate/pkg/logger"
)

// Job is one housekeeping step. Run returns the number of rows it touched.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Worker runs every job once per interval, starting immediately.
type Worker struct {
	jobs     []Job
	interval time.Duration
	log      *logger.Logger
}

// NewWorker creates a Worker. A non-positive interval means one minute.
func NewWorker(log *logger.Logger, interval time.Duration, jobs ...Job) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		jobs:     jobs,
		interval: interval,
		log:      log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce runs each job in order; a failing job does not stop the rest.
func (w *Worker) runOnce(ctx context.Context) {
	for _, job := range w.jobs {
		if ctx.Err() != nil {
			return
		}
		n, err := job.Run(ctx)
		if err != nil {
			w.log.Errorw("maintenance job failed", "job", job.Name, "error", err)
			continue
		}
		if n > 0 {
			w.log.Infow("cleaned up "+job.Name, "count", n)
		}
	}
}
