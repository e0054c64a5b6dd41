package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"service-master-dispatch/internal/domain"
)

type stubDispatchUsecase struct {
	submitFn   func(ctx context.Context, job domain.Job) (domain.DispatchResult, error)
	dispatchFn func(ctx context.Context, jobID int64) (domain.DispatchResult, error)
	cancelFn   func(ctx context.Context, jobID int64) (domain.CancelResult, error)
	startFn    func(ctx context.Context, jobID int64) error
	completeFn func(ctx context.Context, jobID int64) error
	historyFn  func(ctx context.Context, jobID int64) ([]domain.Assignment, error)
}

func (s *stubDispatchUsecase) Submit(ctx context.Context, job domain.Job) (domain.DispatchResult, error) {
	return s.submitFn(ctx, job)
}

func (s *stubDispatchUsecase) Dispatch(ctx context.Context, jobID int64) (domain.DispatchResult, error) {
	return s.dispatchFn(ctx, jobID)
}

func (s *stubDispatchUsecase) Cancel(ctx context.Context, jobID int64) (domain.CancelResult, error) {
	return s.cancelFn(ctx, jobID)
}

func (s *stubDispatchUsecase) Start(ctx context.Context, jobID int64) error {
	return s.startFn(ctx, jobID)
}

func (s *stubDispatchUsecase) Complete(ctx context.Context, jobID int64) error {
	return s.completeFn(ctx, jobID)
}

func (s *stubDispatchUsecase) History(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	return s.historyFn(ctx, jobID)
}

type stubAssignmentUsecase struct {
	acceptFn func(ctx context.Context, id uuid.UUID, masterID int64) (domain.AcceptResult, error)
	rejectFn func(ctx context.Context, id uuid.UUID, masterID int64, reason string) (domain.RejectResult, error)
}

func (s *stubAssignmentUsecase) Accept(ctx context.Context, id uuid.UUID, masterID int64) (domain.AcceptResult, error) {
	return s.acceptFn(ctx, id, masterID)
}

func (s *stubAssignmentUsecase) Reject(
	ctx context.Context,
	id uuid.UUID,
	masterID int64,
	reason string,
) (domain.RejectResult, error) {
	return s.rejectFn(ctx, id, masterID, reason)
}

type stubRouteUsecase struct {
	jobsFn   func(ctx context.Context, jobIDs []int64, start *domain.Point) (domain.Route, error)
	masterFn func(ctx context.Context, masterID int64, start *domain.Point) (domain.Route, error)
}

func (s *stubRouteUsecase) OptimizeJobs(ctx context.Context, jobIDs []int64, start *domain.Point) (domain.Route, error) {
	return s.jobsFn(ctx, jobIDs, start)
}

func (s *stubRouteUsecase) OptimizeForMaster(
	ctx context.Context,
	masterID int64,
	start *domain.Point,
) (domain.Route, error) {
	return s.masterFn(ctx, masterID, start)
}

type stubMasterUsecase struct {
	getFn   func(ctx context.Context, id int64) (*domain.Master, error)
	shiftFn func(ctx context.Context, id int64, available bool) error
}

func (s *stubMasterUsecase) Get(ctx context.Context, id int64) (*domain.Master, error) {
	return s.getFn(ctx, id)
}

func (s *stubMasterUsecase) SetShift(ctx context.Context, id int64, available bool) error {
	return s.shiftFn(ctx, id, available)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
