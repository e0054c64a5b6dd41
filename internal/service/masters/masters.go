package masters

import (
	"context"
	"time"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/logx"
)

// Service exposes the part of the master directory the dispatch API may touch.
type Service struct {
	repo             masterRepository
	operationTimeout time.Duration
	logger           logx.Logger
}

// NewService creates and configures a masters Service.
func NewService(r masterRepository, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{repo: r, operationTimeout: timeout, logger: logger}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Get retrieves a master by its ID.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Master, error) {
	if id <= 0 {
		return nil, apperr.ErrInvalid
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := s.repo.GetMaster(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.ErrNotFound
	}
	return m, nil
}

// SetShift opens or closes the master's shift. Pending offers are not touched.
func (s *Service) SetShift(ctx context.Context, id int64, available bool) error {
	if id <= 0 {
		return apperr.ErrInvalid
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.repo.SetAvailability(ctx, id, available)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	s.logger.Info("master shift changed",
		logx.Int64("master_id", id),
		logx.Bool("available", available),
	)
	return nil
}
