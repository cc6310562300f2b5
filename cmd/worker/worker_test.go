package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pomegranate/pkg/logger"
)

func counting(calls *atomic.Int32, n int64, err error) func(context.Context) (int64, error) {
	return func(context.Context) (int64, error) {
		calls.Add(1)
		return n, err
	}
}

func TestWorker_FailingJobDoesNotStopOthers(t *testing.T) {
	var first, second atomic.Int32
	w := NewWorker(logger.Nop(), time.Hour,
		Job{Name: "broken", Run: counting(&first, 0, errors.New("boom"))},
		Job{Name: "sessions", Run: counting(&second, 3, nil)},
	)

	w.runOnce(context.Background())

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestWorker_SkipsJobsAfterCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorker(logger.Nop(), time.Hour, Job{Name: "sessions", Run: counting(&calls, 1, nil)})
	w.runOnce(ctx)

	assert.Zero(t, calls.Load())
}

func TestWorker_RunTicksUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(logger.Nop(), 5*time.Millisecond, Job{Name: "sessions", Run: counting(&calls, 0, nil)})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewWorker_DefaultInterval(t *testing.T) {
	w := NewWorker(logger.Nop(), 0)
	assert.Equal(t, time.Minute, w.interval)
}
