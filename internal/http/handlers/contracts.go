package handlers

import (
	"context"

	"github.com/google/uuid"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/service/dispatch"
	"service-master-dispatch/internal/service/masters"
	"service-master-dispatch/internal/service/routing"
)

type dispatchUsecase interface {
	Submit(ctx context.Context, job domain.Job) (domain.DispatchResult, error)
	Dispatch(ctx context.Context, jobID int64) (domain.DispatchResult, error)
	Cancel(ctx context.Context, jobID int64) (domain.CancelResult, error)
	Start(ctx context.Context, jobID int64) error
	Complete(ctx context.Context, jobID int64) error
	History(ctx context.Context, jobID int64) ([]domain.Assignment, error)
}

// NewDispatchUsecase wires a dispatch Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type assignmentUsecase interface {
	Accept(ctx context.Context, assignmentID uuid.UUID, masterID int64) (domain.AcceptResult, error)
	Reject(ctx context.Context, assignmentID uuid.UUID, masterID int64, reason string) (domain.RejectResult, error)
}

// NewAssignmentUsecase wires a dispatch Service into an assignmentUsecase.
func NewAssignmentUsecase(svc *dispatch.Service) assignmentUsecase {
	return svc
}

type routeUsecase interface {
	OptimizeJobs(ctx context.Context, jobIDs []int64, start *domain.Point) (domain.Route, error)
	OptimizeForMaster(ctx context.Context, masterID int64, start *domain.Point) (domain.Route, error)
}

// NewRouteUsecase wires a routing Service into a routeUsecase.
func NewRouteUsecase(svc *routing.Service) routeUsecase {
	return svc
}

type masterUsecase interface {
	Get(ctx context.Context, id int64) (*domain.Master, error)
	SetShift(ctx context.Context, id int64, available bool) error
}

// NewMasterUsecase wires a masters Service into a masterUsecase.
func NewMasterUsecase(svc *masters.Service) masterUsecase {
	return svc
}
