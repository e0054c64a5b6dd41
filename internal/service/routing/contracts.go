package routing

import (
	"context"

	"service-master-dispatch/internal/domain"
)

// JobReader loads the jobs a route is built from.
type JobReader interface {
	ListJobsByIDs(ctx context.Context, ids []int64) ([]domain.Job, error)
	ListActiveByMaster(ctx context.Context, masterID int64) ([]domain.Job, error)
}

// MasterReader resolves the master a route is built for.
type MasterReader interface {
	GetMaster(ctx context.Context, id int64) (*domain.Master, error)
}

// Optimizer orders route stops.
type Optimizer interface {
	Optimize(stops []domain.RouteStop, start *domain.Point) (domain.Route, error)
}
