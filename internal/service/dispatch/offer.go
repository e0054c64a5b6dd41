package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/ports/dispatchtx"
)

// offerNext creates the next offer for a locked open job. Masters that were already offered
// the job are skipped. When nobody is left the job becomes unassigned.
func (s *Service) offerNext(
	ctx context.Context,
	tx dispatchtx.Repository,
	job *domain.Job,
	out *outbox,
) (domain.DispatchResult, error) {
	history, err := tx.ListAssignmentsByJob(ctx, job.ID)
	if err != nil {
		return domain.DispatchResult{}, err
	}

	now := s.now()
	attempted := make(map[int64]struct{}, len(history))
	lastAttempt := 0
	for i := range history {
		a := history[i]
		if a.Status == domain.AssignmentPending {
			if !a.DueAt(now) {
				return domain.DispatchResult{JobID: job.ID, Outcome: domain.OutcomeOffered, Assignment: &a}, nil
			}
			// Past its deadline but not swept yet.
			if err := s.expire(ctx, tx, &a, now, out.add); err != nil {
				return domain.DispatchResult{}, err
			}
		}
		attempted[a.MasterID] = struct{}{}
		if a.Attempt > lastAttempt {
			lastAttempt = a.Attempt
		}
	}

	pool, err := s.directory.FindEligible(ctx, job.Skill)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("find eligible masters: %w", err)
	}

	fresh := pool[:0:0]
	for _, m := range pool {
		if _, ok := attempted[m.ID]; !ok {
			fresh = append(fresh, m)
		}
	}

	ranked := s.matcher.Rank(*job, fresh)
	if len(ranked) == 0 {
		if err := s.exhaust(ctx, tx, job, len(history), out); err != nil {
			return domain.DispatchResult{}, err
		}
		return domain.DispatchResult{JobID: job.ID, Outcome: domain.OutcomeNoCandidate}, nil
	}

	best := ranked[0]
	a := domain.Assignment{
		ID:             uuid.New(),
		JobID:          job.ID,
		MasterID:       best.Master.ID,
		Status:         domain.AssignmentPending,
		Attempt:        lastAttempt + 1,
		DistanceMeters: best.DistanceMeters,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.OfferTTL),
	}
	if err := tx.InsertAssignment(ctx, &a); err != nil {
		return domain.DispatchResult{}, err
	}
	if job.Status == domain.JobStatusUnassigned {
		if err := tx.UpdateJobStatus(ctx, job.ID, domain.JobStatusNew, nil); err != nil {
			return domain.DispatchResult{}, err
		}
		job.Status = domain.JobStatusNew
	}

	notice := domain.OfferNotice{
		AssignmentID:   a.ID,
		JobID:          job.ID,
		Skill:          job.Skill,
		Location:       *job.Location,
		DistanceMeters: a.DistanceMeters,
		Attempt:        a.Attempt,
		ExpiresAt:      a.ExpiresAt,
	}
	masterID := a.MasterID
	out.add(func() {
		s.metrics.OfferCreated(notice.Attempt)
		s.notifier.NotifyOffer(context.WithoutCancel(ctx), masterID, notice)
		s.logger.Info("offer created",
			logx.String("event", "offer_created"),
			logx.String("assignment_id", notice.AssignmentID.String()),
			logx.Int64("job_id", notice.JobID),
			logx.Int64("master_id", masterID),
			logx.Int("attempt", notice.Attempt),
			logx.Float64("distance_m", notice.DistanceMeters),
			logx.Time("expires_at", notice.ExpiresAt),
		)
	})

	return domain.DispatchResult{JobID: job.ID, Outcome: domain.OutcomeOffered, Assignment: &a}, nil
}

// expire marks a due pending offer expired inside tx.
func (s *Service) expire(
	ctx context.Context,
	tx dispatchtx.Repository,
	a *domain.Assignment,
	now time.Time,
	after func(func()),
) error {
	if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentExpired, "", now); err != nil {
		return err
	}
	id, jobID, masterID := a.ID, a.JobID, a.MasterID
	after(func() {
		s.metrics.Resolved(domain.AssignmentExpired)
		s.logger.Info("offer expired",
			logx.String("event", "offer_expired"),
			logx.String("assignment_id", id.String()),
			logx.Int64("job_id", jobID),
			logx.Int64("master_id", masterID),
		)
	})
	return nil
}

func (s *Service) exhaust(ctx context.Context, tx dispatchtx.Repository, job *domain.Job, attempts int, out *outbox) error {
	if job.Status != domain.JobStatusUnassigned {
		if err := tx.UpdateJobStatus(ctx, job.ID, domain.JobStatusUnassigned, nil); err != nil {
			return err
		}
		job.Status = domain.JobStatusUnassigned
	}

	jobID, clientID := job.ID, job.ClientID
	out.add(func() {
		s.metrics.Exhausted()
		s.notifier.NotifyOutcome(context.WithoutCancel(ctx), clientID, domain.OutcomeNotice{
			JobID:  jobID,
			Status: domain.JobStatusUnassigned,
		})
		s.logger.Warn("no candidate left",
			logx.String("event", "dispatch_exhausted"),
			logx.Int64("job_id", jobID),
			logx.Int("attempts", attempts),
			logx.Err(apperr.ErrExhausted),
		)
	})
	return nil
}
