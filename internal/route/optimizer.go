package route

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/geo"
)

// Config stores travel time estimation settings.
type Config struct {
	AvgSpeedKmh      float64       // assumed average urban speed
	CongestionFactor float64       // multiplier applied to pure travel time
	ParkingOverhead  time.Duration // fixed time added per visited stop
}

// Optimizer orders stops with the nearest-neighbour heuristic.
type Optimizer struct {
	cfg Config
}

// NewOptimizer creates an Optimizer. Non-positive settings fall back to defaults.
func NewOptimizer(cfg Config) *Optimizer {
	if cfg.AvgSpeedKmh <= 0 {
		cfg.AvgSpeedKmh = 30
	}
	if cfg.CongestionFactor < 1 {
		cfg.CongestionFactor = 1
	}
	if cfg.ParkingOverhead < 0 {
		cfg.ParkingOverhead = 0
	}
	return &Optimizer{cfg: cfg}
}

// Optimize returns stops reordered into a low-distance visiting sequence.
//
// Without a start the first stop becomes the implicit start: it is emitted as the
// first leg with zero distance and duration and removed from the pending set. The
// result is always a permutation of stops, so stops A, B, C where C is nearest to A
// come back as [A, C, B] with A's leg empty, not as [C, B].
// When two remaining stops are equally near, the one earlier in the input wins.
func (o *Optimizer) Optimize(stops []domain.RouteStop, start *domain.Point) (domain.Route, error) {
	for _, s := range stops {
		if err := geo.Validate(s.Location); err != nil {
			return domain.Route{}, fmt.Errorf("job %d: %w", s.JobID, err)
		}
	}
	if start != nil {
		if err := geo.Validate(*start); err != nil {
			return domain.Route{}, fmt.Errorf("start: %w", err)
		}
	}
	if len(stops) == 0 {
		if start == nil {
			return domain.Route{}, fmt.Errorf("empty route without start: %w", apperr.ErrInvalid)
		}
		return domain.Route{Start: *start}, nil
	}

	pending := make([]domain.RouteStop, len(stops))
	copy(pending, stops)

	legs := make([]domain.RouteLeg, 0, len(stops))
	var current domain.Point
	if start != nil {
		current = *start
	} else {
		current = pending[0].Location
		legs = append(legs, domain.RouteLeg{JobID: pending[0].JobID, Location: current})
		pending = pending[1:]
	}
	route := domain.Route{Start: current}

	var cumulative float64
	for len(pending) > 0 {
		best, bestDist := 0, geo.Distance(current, pending[0].Location)
		for i := 1; i < len(pending); i++ {
			if d := geo.Distance(current, pending[i].Location); d < bestDist {
				best, bestDist = i, d
			}
		}

		next := pending[best]
		cumulative += bestDist
		legs = append(legs, domain.RouteLeg{
			JobID:              next.JobID,
			Location:           next.Location,
			DistanceMeters:     bestDist,
			Duration:           o.estimate(bestDist),
			CumulativeDistance: cumulative,
		})
		current = next.Location
		pending = append(pending[:best], pending[best+1:]...)
	}

	dists := make([]float64, len(legs))
	for i, l := range legs {
		dists[i] = l.DistanceMeters
		route.TotalDuration += l.Duration
	}
	route.Legs = legs
	route.TotalDistanceMeters = floats.Sum(dists)
	return route, nil
}

// estimate converts a leg distance into travel time plus parking.
func (o *Optimizer) estimate(meters float64) time.Duration {
	metersPerSecond := o.cfg.AvgSpeedKmh * 1000 / 3600
	travel := meters / metersPerSecond * o.cfg.CongestionFactor
	return time.Duration(travel*float64(time.Second)) + o.cfg.ParkingOverhead
}
