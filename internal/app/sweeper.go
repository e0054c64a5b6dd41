package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"service-master-dispatch/internal/logx"
)

type expirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs the offer expiry sweep on a cron schedule. Overlapping runs are skipped.
type Sweeper struct {
	cron   *cron.Cron
	svc    expirySweeper
	logger logx.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// NewSweeper schedules svc.SweepExpired. The schedule uses the standard cron syntax or @every.
func NewSweeper(svc expirySweeper, schedule string, logger logx.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logx.Nop()
	}
	logger = logger.With(logx.String("component", "sweeper"))
	cl := cronLogger{l: logger}

	s := &Sweeper{
		svc:    svc,
		logger: logger,
		ctx:    context.Background(),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddJob(schedule, s); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is done and waits for a running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("sweeper started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
	return ctx.Err()
}

// Run performs a single sweep. It implements cron.Job.
func (s *Sweeper) Run() {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	n, err := s.svc.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("sweep failed", logx.Int("expired", n), logx.Err(err))
		return
	}
	if n > 0 {
		s.logger.Debug("sweep done", logx.Int("expired", n))
	}
}

// cronLogger adapts logx.Logger to cron.Logger.
type cronLogger struct {
	l logx.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logx.Any(key, kv[i+1]))
	}
	return fields
}
