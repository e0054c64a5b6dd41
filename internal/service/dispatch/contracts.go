//go:generate mockgen -source=contracts.go -destination=dispatch_mocks_test.go -package=dispatch_test

package dispatch

import (
	"context"
	"time"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/ports/dispatchtx"
)

// Store is the persistence the engine needs: transactions plus the sweep scan.
type Store interface {
	dispatchtx.Runner
	Reader
	ListDuePending(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error)
}

// Directory supplies masters eligible for a skill. Flags are owned by the directory.
type Directory interface {
	FindEligible(ctx context.Context, skill string) ([]domain.Master, error)
}

// Notifier delivers offers and outcomes. Implementations must not block.
type Notifier interface {
	NotifyOffer(ctx context.Context, masterID int64, n domain.OfferNotice)
	NotifyOutcome(ctx context.Context, userID int64, n domain.OutcomeNotice)
}

// Recorder receives dispatch metrics.
type Recorder interface {
	OfferCreated(attempt int)
	Resolved(status domain.AssignmentStatus)
	Exhausted()
	Swept(n int)
}

// Reader is the read-only part of the store used outside transactions.
type Reader interface {
	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	ListAssignments(ctx context.Context, jobID int64) ([]domain.Assignment, error)
}
