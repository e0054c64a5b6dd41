package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"service-master-dispatch/internal/domain"
)

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewNotificationsDroppedTotal returns a Prometheus counter for notifications dropped before delivery
func NewNotificationsDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Total number of notifications dropped because the queue was full or closed",
	})
}

// Dispatch collects offer lifecycle metrics.
type Dispatch struct {
	offers    *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	exhausted prometheus.Counter
	swept     prometheus.Counter
}

// NewDispatch creates dispatch metrics. Register them with Collectors.
func NewDispatch() *Dispatch {
	return &Dispatch{
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offers_total",
			Help: "Total number of offers created, by attempt number",
		}, []string{"attempt"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offers_resolved_total",
			Help: "Total number of offers resolved, by final status",
		}, []string{"status"}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_exhausted_total",
			Help: "Total number of jobs left unassigned after the candidate list ran out",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_swept_total",
			Help: "Total number of offers expired by the sweeper",
		}),
	}
}

// Collectors returns the collectors to register.
func (d *Dispatch) Collectors() []prometheus.Collector {
	return []prometheus.Collector{d.offers, d.resolved, d.exhausted, d.swept}
}

// Register registers every dispatch collector, adopting ones registered earlier.
func (d *Dispatch) Register(reg prometheus.Registerer) error {
	var err error
	if d.offers, err = Register(reg, d.offers); err != nil {
		return err
	}
	if d.resolved, err = Register(reg, d.resolved); err != nil {
		return err
	}
	if d.exhausted, err = Register(reg, d.exhausted); err != nil {
		return err
	}
	if d.swept, err = Register(reg, d.swept); err != nil {
		return err
	}
	return nil
}

// Register registers c with reg. If an equal collector is already registered it is returned instead.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// OfferCreated counts a new offer. Attempts above 5 share one label.
func (d *Dispatch) OfferCreated(attempt int) {
	label := "6+"
	if attempt <= 5 {
		label = strconv.Itoa(attempt)
	}
	d.offers.WithLabelValues(label).Inc()
}

// Resolved counts an offer reaching a terminal status.
func (d *Dispatch) Resolved(status domain.AssignmentStatus) {
	d.resolved.WithLabelValues(string(status)).Inc()
}

// Exhausted counts a job left without candidates.
func (d *Dispatch) Exhausted() { d.exhausted.Inc() }

// Swept counts offers expired by one sweep.
func (d *Dispatch) Swept(n int) {
	if n > 0 {
		d.swept.Add(float64(n))
	}
}
