// Package notify delivers dispatch notifications off the transition path.
//
// Notifications are queued on a bounded channel and sent by a fixed set of workers.
// A full queue drops the notification with a warning; delivery is best-effort.
package notify

import (
	"context"
	"sync"
	"time"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/gateway/push"
	"service-master-dispatch/internal/logx"
)

//go:generate mockgen -source=notifier.go -destination=notify_mocks_test.go -package=notify_test

// Sender delivers a single push message.
type Sender interface {
	Send(ctx context.Context, m push.Message) error
}

type counter interface {
	Inc()
}

// Config stores notifier settings.
type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Notifier is an asynchronous best-effort notifier.
type Notifier struct {
	sender  Sender
	logger  logx.Logger
	dropped counter
	cfg     Config

	mu     sync.RWMutex
	closed bool
	queue  chan push.Message
	wg     sync.WaitGroup
}

// New creates a Notifier. Call Start to begin delivery.
func New(sender Sender, cfg Config, logger logx.Logger, dropped counter) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Notifier{
		sender:  sender,
		logger:  logger,
		dropped: dropped,
		cfg:     cfg,
		queue:   make(chan push.Message, cfg.QueueSize),
	}
}

// Start launches the delivery workers. They exit when ctx is cancelled or, after Close,
// once the queue is drained. Pass a context that is never cancelled to keep Close's drain.
func (n *Notifier) Start(ctx context.Context) {
	for i := 0; i < n.cfg.Workers; i++ {
		n.wg.Add(1)
		go n.work(ctx)
	}
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

// NotifyOffer tells a master about a new offer.
func (n *Notifier) NotifyOffer(_ context.Context, masterID int64, o domain.OfferNotice) {
	n.enqueue(push.Message{
		RecipientID: masterID,
		Kind:        push.KindOffer,
		Payload: map[string]any{
			"assignment_id": o.AssignmentID.String(),
			"job_id":        o.JobID,
			"skill":         o.Skill,
			"lat":           o.Location.Lat,
			"lon":           o.Location.Lon,
			"distance_m":    o.DistanceMeters,
			"attempt":       o.Attempt,
			"expires_at":    o.ExpiresAt,
		},
	})
}

// NotifyOutcome tells a client how the dispatch of its job ended.
func (n *Notifier) NotifyOutcome(_ context.Context, userID int64, o domain.OutcomeNotice) {
	payload := map[string]any{
		"job_id": o.JobID,
		"status": string(o.Status),
	}
	if o.MasterID != nil {
		payload["master_id"] = *o.MasterID
	}
	n.enqueue(push.Message{RecipientID: userID, Kind: push.KindOutcome, Payload: payload})
}

func (n *Notifier) enqueue(m push.Message) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(m, "notifier closed")
		return
	}
	select {
	case n.queue <- m:
	default:
		n.drop(m, "queue full")
	}
}

func (n *Notifier) drop(m push.Message, reason string) {
	if n.dropped != nil {
		n.dropped.Inc()
	}
	n.logger.Warn("notification dropped",
		logx.String("kind", m.Kind),
		logx.Int64("recipient_id", m.RecipientID),
		logx.String("reason", reason),
	)
}

func (n *Notifier) work(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-n.queue:
			if !ok {
				return
			}
			n.send(ctx, m)
		}
	}
}

func (n *Notifier) send(ctx context.Context, m push.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
	defer cancel()
	if err := n.sender.Send(sendCtx, m); err != nil {
		n.logger.Error("notification failed",
			logx.String("kind", m.Kind),
			logx.Int64("recipient_id", m.RecipientID),
			logx.Err(err),
		)
	}
}
