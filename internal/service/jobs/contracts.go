//go:generate mockgen -source=contracts.go -destination=jobs_mocks_test.go -package=jobs_test

package jobs

import (
	"context"

	"service-master-dispatch/internal/domain"
)

// DispatchPort abstracts the subset of dispatch operations
// needed by the Processor when handling job events.
type DispatchPort interface {
	Submit(ctx context.Context, job domain.Job) (domain.DispatchResult, error)
	Dispatch(ctx context.Context, jobID int64) (domain.DispatchResult, error)
	Cancel(ctx context.Context, jobID int64) (domain.CancelResult, error)
	Start(ctx context.Context, jobID int64) error
	Complete(ctx context.Context, jobID int64) error
}
