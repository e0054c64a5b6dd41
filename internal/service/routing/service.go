package routing

import (
	"context"
	"fmt"
	"time"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
)

// Service builds visiting routes over stored jobs.
type Service struct {
	jobs             JobReader
	masters          MasterReader
	optimizer        Optimizer
	operationTimeout time.Duration
}

// NewService creates a routing Service.
func NewService(jobs JobReader, masters MasterReader, optimizer Optimizer, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{jobs: jobs, masters: masters, optimizer: optimizer, operationTimeout: timeout}
}

// OptimizeJobs orders the given jobs. Every id must be known, unique and carry a location.
func (s *Service) OptimizeJobs(ctx context.Context, jobIDs []int64, start *domain.Point) (domain.Route, error) {
	seen := make(map[int64]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		if id <= 0 {
			return domain.Route{}, fmt.Errorf("job id %d: %w", id, apperr.ErrInvalid)
		}
		if _, dup := seen[id]; dup {
			return domain.Route{}, fmt.Errorf("job %d listed twice: %w", id, apperr.ErrInvalid)
		}
		seen[id] = struct{}{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	jobs, err := s.jobs.ListJobsByIDs(ctx, jobIDs)
	if err != nil {
		return domain.Route{}, err
	}
	byID := make(map[int64]domain.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	// keep the caller's order: it decides ties and the implicit start
	ordered := make([]domain.Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		j, ok := byID[id]
		if !ok {
			return domain.Route{}, fmt.Errorf("job %d: %w", id, apperr.ErrNotFound)
		}
		ordered = append(ordered, j)
	}

	stops, err := toStops(ordered)
	if err != nil {
		return domain.Route{}, err
	}
	return s.optimizer.Optimize(stops, start)
}

// OptimizeForMaster orders the master's assigned and in-progress jobs. Without an explicit
// start the master's known location is used.
func (s *Service) OptimizeForMaster(ctx context.Context, masterID int64, start *domain.Point) (domain.Route, error) {
	if masterID <= 0 {
		return domain.Route{}, apperr.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	m, err := s.masters.GetMaster(ctx, masterID)
	if err != nil {
		return domain.Route{}, err
	}
	if m == nil {
		return domain.Route{}, apperr.ErrNotFound
	}
	if start == nil && m.Location != nil {
		p := *m.Location
		start = &p
	}

	jobs, err := s.jobs.ListActiveByMaster(ctx, masterID)
	if err != nil {
		return domain.Route{}, err
	}
	if len(jobs) == 0 && start == nil {
		return domain.Route{}, nil
	}

	stops, err := toStops(jobs)
	if err != nil {
		return domain.Route{}, err
	}
	return s.optimizer.Optimize(stops, start)
}

func toStops(jobs []domain.Job) ([]domain.RouteStop, error) {
	stops := make([]domain.RouteStop, 0, len(jobs))
	for _, j := range jobs {
		if j.Location == nil {
			return nil, fmt.Errorf("job %d has no location: %w", j.ID, apperr.ErrInvalid)
		}
		stops = append(stops, domain.RouteStop{JobID: j.ID, Location: *j.Location})
	}
	return stops, nil
}
