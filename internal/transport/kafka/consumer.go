package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/service/jobs"
)

// HandleFunc processes a single jobs.Event from Kafka
type HandleFunc func(context.Context, jobs.Event) error

var newConsumerGroup = sarama.NewConsumerGroup

// Consumer wraps a Sarama consumer group and dispatches events to a handler
type Consumer struct {
	logger     logx.Logger
	group      sarama.ConsumerGroup
	topic      string
	handler    HandleFunc
	retryDelay time.Duration
}

// NewConsumer creates a new Kafka consumer. It returns nil, nil when Kafka is not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = "service-dispatch-worker"
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		logger:     logger.With(logx.String("topic", topic), logx.String("group", groupID)),
		group:      group,
		topic:      topic,
		handler:    h,
		retryDelay: time.Second,
	}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka consume error", logx.Err(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message it is done with. A transient handler error ends
// the session unmarked so the event is redelivered after rejoining.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log := h.c.logger
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var dto EventDTO
			if err := json.Unmarshal(msg.Value, &dto); err != nil {
				log.Warn("kafka bad json",
					logx.Int64("offset", msg.Offset),
					logx.Err(err),
				)
				sess.MarkMessage(msg, "")
				continue
			}
			if dto.JobID <= 0 {
				log.Warn("kafka invalid job_id", logx.Int64("offset", msg.Offset))
				sess.MarkMessage(msg, "")
				continue
			}

			ev := ToDomain(dto)
			if err := h.c.handler(sess.Context(), ev); err != nil {
				if !permanent(err) {
					log.Error("kafka handle failed, retry",
						logx.Int64("job_id", ev.JobID),
						logx.String("status", ev.Status),
						logx.Err(err),
					)
					return err
				}
				log.Warn("kafka event dropped",
					logx.Int64("job_id", ev.JobID),
					logx.String("status", ev.Status),
					logx.Err(err),
				)
			}

			sess.MarkMessage(msg, "")
		}
	}
}

// permanent reports errors that redelivery cannot fix.
func permanent(err error) bool {
	return errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrNotFound)
}
