package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/ports/dispatchtx"
)

// Accept resolves an offer in favour of its master. Exactly one concurrent accept per job wins;
// the losers get ErrConflict. The winning transaction expires every other pending offer of the job.
func (s *Service) Accept(ctx context.Context, assignmentID uuid.UUID, masterID int64) (domain.AcceptResult, error) {
	if assignmentID == uuid.Nil || masterID <= 0 {
		return domain.AcceptResult{}, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		result domain.AcceptResult
		out    outbox
	)
	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, job, err := s.lockAssignment(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		if a.MasterID != masterID {
			return apperr.ErrNotFound
		}

		now := s.now()
		if err := checkActionable(a, job, now); err != nil {
			return err
		}

		if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentAccepted, "", now); err != nil {
			return err
		}
		invalidated, err := tx.ExpirePendingByJob(ctx, job.ID, a.ID, now)
		if err != nil {
			return err
		}
		if err := tx.UpdateJobStatus(ctx, job.ID, domain.JobStatusAssigned, &masterID); err != nil {
			return err
		}

		result = domain.AcceptResult{
			AssignmentID: a.ID,
			JobID:        job.ID,
			MasterID:     masterID,
			AcceptedAt:   now,
			Invalidated:  invalidated,
		}

		clientID := job.ClientID
		out.add(func() {
			s.metrics.Resolved(domain.AssignmentAccepted)
			s.notifier.NotifyOutcome(context.WithoutCancel(ctx), clientID, domain.OutcomeNotice{
				JobID:    result.JobID,
				Status:   domain.JobStatusAssigned,
				MasterID: &result.MasterID,
			})
			s.logger.Info("offer accepted",
				logx.String("event", "offer_accepted"),
				logx.String("assignment_id", result.AssignmentID.String()),
				logx.Int64("job_id", result.JobID),
				logx.Int64("master_id", result.MasterID),
				logx.Int("invalidated", result.Invalidated),
			)
		})
		return nil
	})
	if err != nil {
		return domain.AcceptResult{}, err
	}

	out.flush()
	return result, nil
}

// Reject records the master's refusal and escalates to the next candidate in the same transaction.
func (s *Service) Reject(
	ctx context.Context,
	assignmentID uuid.UUID,
	masterID int64,
	reason string,
) (domain.RejectResult, error) {
	if assignmentID == uuid.Nil || masterID <= 0 {
		return domain.RejectResult{}, apperr.ErrInvalid
	}
	reason = strings.TrimSpace(reason)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		result domain.RejectResult
		out    outbox
	)
	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, job, err := s.lockAssignment(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		if a.MasterID != masterID {
			return apperr.ErrNotFound
		}

		now := s.now()
		if err := checkActionable(a, job, now); err != nil {
			return err
		}
		if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentRejected, reason, now); err != nil {
			return err
		}

		id := a.ID
		out.add(func() {
			s.metrics.Resolved(domain.AssignmentRejected)
			s.logger.Info("offer rejected",
				logx.String("event", "offer_rejected"),
				logx.String("assignment_id", id.String()),
				logx.Int64("job_id", job.ID),
				logx.Int64("master_id", masterID),
				logx.String("reason", reason),
			)
		})

		next, err := s.offerNext(ctx, tx, job, &out)
		if err != nil {
			return err
		}
		result = domain.RejectResult{AssignmentID: a.ID, JobID: job.ID, Next: next}
		return nil
	})
	if err != nil {
		return domain.RejectResult{}, err
	}

	out.flush()
	return result, nil
}

// SweepExpired expires pending offers whose deadline has passed and escalates their jobs.
// It returns the number of offers this call expired. The scan and every expiry get their own
// operation timeout; only cancellation of ctx stops the batch early.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	listCtx, cancel := s.withTimeout(ctx)
	due, err := s.store.ListDuePending(listCtx, s.now(), s.cfg.SweepBatch)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list due offers: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, d := range due {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := s.expireOne(ctx, d.ID)
		if err != nil {
			s.logger.Error("expire offer failed",
				logx.String("assignment_id", d.ID.String()),
				logx.Int64("job_id", d.JobID),
				logx.Err(err),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}

	s.metrics.Swept(expired)
	if expired > 0 {
		s.logger.Info("expiry sweep finished",
			logx.String("event", "sweep"),
			logx.Int("due", len(due)),
			logx.Int("expired", expired),
		)
	}
	return expired, errors.Join(errs...)
}

// expireOne re-checks a due offer under the job lock. An offer answered in the meantime is left alone.
func (s *Service) expireOne(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		expired bool
		out     outbox
	)
	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, job, err := s.lockAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if a.Status != domain.AssignmentPending || !a.DueAt(now) {
			return nil
		}
		if err := s.expire(ctx, tx, a, now, out.add); err != nil {
			return err
		}
		expired = true

		if !job.Open() {
			return nil
		}
		_, err = s.offerNext(ctx, tx, job, &out)
		return err
	})
	if err != nil {
		return false, err
	}

	out.flush()
	return expired, nil
}

// Cancel cancels a job and expires its pending offers. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, jobID int64) (domain.CancelResult, error) {
	if jobID <= 0 {
		return domain.CancelResult{}, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result domain.CancelResult
	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return apperr.ErrNotFound
		}

		result.JobID = job.ID
		switch job.Status {
		case domain.JobStatusCancelled:
			return nil
		case domain.JobStatusCompleted:
			return fmt.Errorf("job %d is completed: %w", job.ID, apperr.ErrConflict)
		}

		n, err := tx.ExpirePendingByJob(ctx, job.ID, uuid.Nil, s.now())
		if err != nil {
			return err
		}
		result.Invalidated = n
		return tx.UpdateJobStatus(ctx, job.ID, domain.JobStatusCancelled, job.MasterID)
	})
	if err != nil {
		return domain.CancelResult{}, err
	}

	s.logger.Info("job cancelled",
		logx.String("event", "job_cancelled"),
		logx.Int64("job_id", result.JobID),
		logx.Int("invalidated", result.Invalidated),
	)
	return result, nil
}

// Start moves an assigned job to in_progress.
func (s *Service) Start(ctx context.Context, jobID int64) error {
	return s.transition(ctx, jobID, domain.JobStatusInProgress, domain.JobStatusAssigned)
}

// Complete finishes an assigned or started job. Completing a completed job is a no-op.
func (s *Service) Complete(ctx context.Context, jobID int64) error {
	return s.transition(ctx, jobID, domain.JobStatusCompleted, domain.JobStatusAssigned, domain.JobStatusInProgress)
}

func (s *Service) transition(ctx context.Context, jobID int64, to domain.JobStatus, from ...domain.JobStatus) error {
	if jobID <= 0 {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return apperr.ErrNotFound
		}
		if job.Status == to {
			return nil
		}
		for _, st := range from {
			if job.Status == st {
				return tx.UpdateJobStatus(ctx, job.ID, to, job.MasterID)
			}
		}
		return fmt.Errorf("job %d is %s, cannot become %s: %w", job.ID, job.Status, to, apperr.ErrConflict)
	})
}
