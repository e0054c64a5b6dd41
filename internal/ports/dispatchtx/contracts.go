package dispatchtx

import (
	"context"
	"time"

	"github.com/google/uuid"

	"service-master-dispatch/internal/domain"
)

// Repository is the set of job and assignment operations available inside a transaction.
//
// GetJobForUpdate takes the job row lock. Every state transition of a job or of any of its
// assignments must take that lock first, so transitions on one job are serialized.
type Repository interface {
	InsertJob(ctx context.Context, j *domain.Job) (bool, error)
	GetJobForUpdate(ctx context.Context, id int64) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, id int64, status domain.JobStatus, masterID *int64) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	ListAssignmentsByJob(ctx context.Context, jobID int64) ([]domain.Assignment, error)
	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	ResolveAssignment(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus, reason string, at time.Time) error
	ExpirePendingByJob(ctx context.Context, jobID int64, except uuid.UUID, at time.Time) (int, error)
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
