package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"go.uber.org/dig"

	"service-master-dispatch/internal/config"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/notify"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the HTTP API.
type Runner struct {
	runFn     func(*dig.Container) error
	logFatalf func(string, ...interface{})
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run, logFatalf: log.Fatalf}
}

// MustRun starts the HTTP server using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return
	case errors.Is(err, context.DeadlineExceeded):
		log.Println("startup aborted: startup timeout exceeded")
	default:
		r.logFatalf("run error: %v", err)
	}
}

// MustRun runs the API with the default Runner.
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

func run(container *dig.Container) error {
	return container.Invoke(serve)
}

type serveIn struct {
	dig.In

	Ctx      context.Context
	Cfg      *config.Config
	Logger   logx.Logger
	Server   *http.Server
	Pprof    *http.Server `name:"pprof_server"`
	Sweeper  *Sweeper
	Notifier *notify.Notifier
	Push     *pushClient
	Store    *storeBundle
}

// serve blocks until ctx is done or a listener fails. The in-memory store lives in this
// process only, so the API sweeps expired offers itself when it uses it.
func serve(in serveIn) error {
	logger := in.Logger
	errCh := make(chan error, 2)

	startServer(in.Server, "http", logger, errCh)
	if in.Pprof != nil {
		startServer(in.Pprof, "pprof", logger, errCh)
	}

	sweepCtx, stopSweep := context.WithCancel(in.Ctx)
	defer stopSweep()
	var wg sync.WaitGroup
	if in.Cfg.Store.Driver == config.StoreDriverMemory && in.Sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = in.Sweeper.Start(sweepCtx)
		}()
	}

	var runErr error
	select {
	case <-in.Ctx.Done():
		logger.Info("shutting down service-dispatch")
		runErr = in.Ctx.Err()
	case err := <-errCh:
		logger.Error("server failed", logx.Err(err))
		runErr = err
	}

	stopSweep()
	gracefulShutdown(in.Server, logger, shutdownTimeout)
	if in.Pprof != nil {
		gracefulShutdown(in.Pprof, logger, shutdownTimeout)
	}
	wg.Wait()
	closeResources(logger, in.Notifier, in.Push, in.Store)
	return runErr
}

func startServer(server *http.Server, name string, logger logx.Logger, errCh chan<- error) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
	}
}

// closeResources drains the notification queue before the push connection and the store go away.
func closeResources(logger logx.Logger, n *notify.Notifier, push *pushClient, store *storeBundle) {
	if n != nil {
		n.Close()
	}
	if push != nil && push.close != nil {
		if err := push.close(); err != nil {
			logger.Error("push close error", logx.Err(err))
		}
	}
	if store != nil && store.close != nil {
		store.close()
	}
	_ = logger.Sync()
}
