package jobs

import (
	"context"
	"errors"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/logx"
)

// Processor maps job events onto dispatch operations.
type Processor struct {
	dispatch DispatchPort
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a Processor.
func NewProcessor(dispatch DispatchPort, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		dispatch: dispatch,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onCreated, p.onCancelled, p.onStarted, p.onCompleted)
	return p
}

// Handle processes a single Event. Unknown statuses are ignored.
// Events that replay an already applied transition are not errors.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Status)
	if !ok {
		p.logger.Debug("job event ignored",
			logx.Int64("job_id", e.JobID),
			logx.String("status", e.Status),
		)
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onCreated(ctx context.Context, e Event) error {
	var err error
	if e.carriesJob() {
		_, err = p.dispatch.Submit(ctx, e.job())
	} else {
		_, err = p.dispatch.Dispatch(ctx, e.JobID)
	}
	if errors.Is(err, apperr.ErrConflict) {
		// already offered or past dispatch
		return nil
	}
	return err
}

func (p *Processor) onCancelled(ctx context.Context, e Event) error {
	_, err := p.dispatch.Cancel(ctx, e.JobID)
	return p.settle(e, err)
}

func (p *Processor) onStarted(ctx context.Context, e Event) error {
	return p.settle(e, p.dispatch.Start(ctx, e.JobID))
}

func (p *Processor) onCompleted(ctx context.Context, e Event) error {
	return p.settle(e, p.dispatch.Complete(ctx, e.JobID))
}

// settle drops events that cannot apply to the current job state.
func (p *Processor) settle(e Event, err error) error {
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		p.logger.Warn("job event not applicable",
			logx.Int64("job_id", e.JobID),
			logx.String("status", e.Status),
			logx.Err(err),
		)
		return nil
	}
	return err
}
