package app

import (
	"context"
	"errors"

	"go.uber.org/dig"

	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/notify"
	"service-master-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the job events consumer and the expiry sweeper.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

type workerIn struct {
	dig.In

	Ctx      context.Context
	Logger   logx.Logger
	Consumer *kafka.Consumer
	Sweeper  *Sweeper
	Notifier *notify.Notifier
	Push     *pushClient
	Store    *storeBundle
}

type consumer interface {
	Run(ctx context.Context) error
	Close() error
}

type scheduler interface {
	Start(ctx context.Context) error
}

func workerRun(in workerIn) error {
	var c consumer
	if in.Consumer != nil {
		c = in.Consumer
	}
	defer closeResources(in.Logger, in.Notifier, in.Push, in.Store)
	return runLoops(in.Ctx, in.Logger, c, in.Sweeper)
}

// runLoops runs the consumer and the sweeper until ctx is done or one of them fails.
// A missing consumer leaves only the sweeper running.
func runLoops(ctx context.Context, logger logx.Logger, c consumer, s scheduler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	loops := 1
	go func() { errCh <- s.Start(ctx) }()

	if c != nil {
		loops++
		go func() { errCh <- c.Run(ctx) }()
		defer func() {
			if err := c.Close(); err != nil {
				logger.Error("kafka close error", logx.Err(err))
			}
		}()
	} else {
		logger.Warn("kafka not configured, running expiry sweeper only")
	}

	logger.Info("service-dispatch-worker started")

	var first error
	for i := 0; i < loops; i++ {
		err := <-errCh
		if first == nil {
			first = err
		}
		cancel()
	}
	logger.Info("service-dispatch-worker stopped")
	return first
}
