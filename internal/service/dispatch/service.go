package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/geo"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/ports/dispatchtx"
)

// Config stores dispatch engine settings.
type Config struct {
	OfferTTL         time.Duration
	OperationTimeout time.Duration
	SweepBatch       int
}

// Service is the dispatch engine: it offers jobs to masters one at a time,
// resolves accept/reject/expiry races and escalates through the ranked candidates.
type Service struct {
	store     Store
	directory Directory
	matcher   *geo.Matcher
	notifier  Notifier
	metrics   Recorder
	cfg       Config
	logger    logx.Logger
	now       func() time.Time
}

// NewService creates a dispatch Service.
func NewService(store Store, dir Directory, notifier Notifier, metrics Recorder, cfg Config, logger logx.Logger) *Service {
	if cfg.OfferTTL <= 0 {
		cfg.OfferTTL = 3 * time.Minute
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		store:     store,
		directory: dir,
		matcher:   geo.NewMatcher(),
		notifier:  notifier,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// Submit registers a new job and dispatches it. Submitting a known job id only re-dispatches it.
func (s *Service) Submit(ctx context.Context, job domain.Job) (domain.DispatchResult, error) {
	if err := validateJob(job); err != nil {
		return domain.DispatchResult{}, err
	}

	txCtx, cancel := s.withTimeout(ctx)
	err := s.store.WithTx(txCtx, func(tx dispatchtx.Repository) error {
		now := s.now()
		job.Status = domain.JobStatusNew
		job.MasterID = nil
		job.CreatedAt, job.UpdatedAt = now, now
		created, err := tx.InsertJob(txCtx, &job)
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("job registered",
				logx.String("event", "job_registered"),
				logx.Int64("job_id", job.ID),
				logx.String("skill", job.Skill),
			)
		}
		return nil
	})
	cancel()
	if err != nil {
		return domain.DispatchResult{}, err
	}
	return s.Dispatch(ctx, job.ID)
}

// Dispatch offers the job to the nearest eligible master that has not been offered it yet.
// A job without candidates becomes unassigned and the result outcome is no_candidate.
// Dispatching a job that already has a pending offer returns that offer.
func (s *Service) Dispatch(ctx context.Context, jobID int64) (domain.DispatchResult, error) {
	if jobID <= 0 {
		return domain.DispatchResult{}, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		result domain.DispatchResult
		out    outbox
	)
	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return apperr.ErrNotFound
		}
		if !job.Open() {
			return fmt.Errorf("job %d is %s: %w", job.ID, job.Status, apperr.ErrConflict)
		}
		if err := validateJob(*job); err != nil {
			return err
		}
		result, err = s.offerNext(ctx, tx, job, &out)
		return err
	})
	if err != nil {
		return domain.DispatchResult{}, err
	}

	out.flush()
	return result, nil
}

// History returns every offer made for a job ordered by attempt.
func (s *Service) History(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	if jobID <= 0 {
		return nil, apperr.ErrInvalid
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperr.ErrNotFound
	}
	return s.store.ListAssignments(ctx, jobID)
}

// lockAssignment loads an assignment, takes its job lock and re-reads the assignment
// so the returned status is current under the lock.
func (s *Service) lockAssignment(
	ctx context.Context,
	tx dispatchtx.Repository,
	id uuid.UUID,
) (*domain.Assignment, *domain.Job, error) {
	a, err := tx.GetAssignment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, apperr.ErrNotFound
	}
	job, err := tx.GetJobForUpdate(ctx, a.JobID)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, fmt.Errorf("job %d of assignment %s: %w", a.JobID, id, apperr.ErrNotFound)
	}
	a, err = tx.GetAssignment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, apperr.ErrNotFound
	}
	return a, job, nil
}

// checkActionable reports why an offer can no longer be answered, if it cannot.
func checkActionable(a *domain.Assignment, job *domain.Job, now time.Time) error {
	if !job.Open() {
		return fmt.Errorf("job %d is %s: %w", job.ID, job.Status, apperr.ErrConflict)
	}
	switch a.Status {
	case domain.AssignmentPending:
		if a.DueAt(now) {
			return fmt.Errorf("assignment %s expired at %s: %w", a.ID, a.ExpiresAt.Format(time.RFC3339), apperr.ErrExpired)
		}
		return nil
	case domain.AssignmentExpired:
		return fmt.Errorf("assignment %s: %w", a.ID, apperr.ErrExpired)
	default:
		return fmt.Errorf("assignment %s is %s: %w", a.ID, a.Status, apperr.ErrConflict)
	}
}

func validateJob(job domain.Job) error {
	if job.ID <= 0 {
		return apperr.ErrInvalid
	}
	if strings.TrimSpace(job.Skill) == "" {
		return fmt.Errorf("job %d has no skill: %w", job.ID, apperr.ErrInvalid)
	}
	if job.Location == nil {
		return fmt.Errorf("job %d has no location: %w", job.ID, apperr.ErrInvalid)
	}
	if err := geo.Validate(*job.Location); err != nil {
		return fmt.Errorf("job %d: %w", job.ID, err)
	}
	return nil
}

// outbox holds side effects that must only run after the transaction commits.
type outbox struct {
	fns []func()
}

func (o *outbox) add(fn func()) { o.fns = append(o.fns, fn) }

func (o *outbox) flush() {
	for _, fn := range o.fns {
		fn()
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyOffer(context.Context, int64, domain.OfferNotice)     {}
func (nopNotifier) NotifyOutcome(context.Context, int64, domain.OutcomeNotice) {}

type nopRecorder struct{}

func (nopRecorder) OfferCreated(int)                  {}
func (nopRecorder) Resolved(domain.AssignmentStatus) {}
func (nopRecorder) Exhausted()                        {}
func (nopRecorder) Swept(int)                         {}
