package masters

import (
	"context"

	"service-master-dispatch/internal/domain"
)

// masterRepository defines the directory operations required by the business layer.
type masterRepository interface {
	GetMaster(ctx context.Context, id int64) (*domain.Master, error)
	SetAvailability(ctx context.Context, id int64, available bool) (bool, error)
}
