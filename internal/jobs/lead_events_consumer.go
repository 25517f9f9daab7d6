package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityEvent is published by the CRM whenever a lead, listing or agent changes.
type EntityEvent struct {
	EventType  string            `json:"event_type"`
	AgencyID   uuid.UUID         `json:"agency_id"`
	EntityType models.EntityType `json:"entity_type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// RealtimeEvaluator re-runs detection for one agency.
type RealtimeEvaluator interface {
	RunForAgency(ctx context.Context, agencyID uuid.UUID, entityType models.EntityType) (*EvaluationSummary, error)
}

var errMalformedEvent = errors.New("malformed entity event")

const maxEventAttempts = 3

// LeadEventsConsumer triggers realtime evaluation from the CRM event stream.
type LeadEventsConsumer struct {
	topic         string
	consumerGroup sarama.ConsumerGroup
	evaluator     RealtimeEvaluator
	retryBackoff  time.Duration
	logger        *zap.Logger
}

func NewLeadEventsConsumer(topic string, consumerGroup sarama.ConsumerGroup, evaluator RealtimeEvaluator, logger *zap.Logger) *LeadEventsConsumer {
	return &LeadEventsConsumer{
		topic:         topic,
		consumerGroup: consumerGroup,
		evaluator:     evaluator,
		retryBackoff:  500 * time.Millisecond,
		logger:        logger.Named("lead_events_consumer"),
	}
}

// NewConsumerGroup builds the sarama group used by the consumer.
func NewConsumerGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}

// Start consumes until ctx is cancelled or the group is closed.
func (c *LeadEventsConsumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.logger.Warn("failed to close consumer group", zap.Error(err))
		}
	}()

	c.logger.Info("consumer started", zap.String("topic", c.topic))

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Warn("consumer group error", zap.Error(err))
		}
	}()

	backoff := time.Second
	for {
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return err
			}
			c.logger.Error("consume failed", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return ctx.Err()
		}
		backoff = time.Second
	}
}

func (c *LeadEventsConsumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.logger.Info("partition assignment", zap.String("topic", topic), zap.Int32s("partitions", partitions))
	}
	return nil
}

func (c *LeadEventsConsumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks offsets strictly in order. An event that still fails
// after retries ends the claim unmarked, so the next session resumes at it
// instead of committing past it.
func (c *LeadEventsConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		err := c.handleWithRetry(session.Context(), message.Value)
		switch {
		case errors.Is(err, errMalformedEvent):
			c.logger.Warn("skipping malformed event", zap.Int64("offset", message.Offset), zap.Error(err))
		case err != nil:
			c.logger.Error("event handling failed, restarting at offset",
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
			return fmt.Errorf("partition %d offset %d: %w", message.Partition, message.Offset, err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *LeadEventsConsumer) handleWithRetry(ctx context.Context, value []byte) error {
	var err error
	for attempt := 1; attempt <= maxEventAttempts; attempt++ {
		err = c.handleMessage(ctx, value)
		if err == nil || errors.Is(err, errMalformedEvent) || attempt == maxEventAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func (c *LeadEventsConsumer) handleMessage(ctx context.Context, value []byte) error {
	var event EntityEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.AgencyID == uuid.Nil {
		return fmt.Errorf("%w: missing agency_id", errMalformedEvent)
	}
	if !event.EntityType.Valid() {
		return fmt.Errorf("%w: unknown entity_type %q", errMalformedEvent, event.EntityType)
	}

	summary, err := c.evaluator.RunForAgency(ctx, event.AgencyID, event.EntityType)
	if errors.Is(err, common.ErrNotFound) {
		c.logger.Warn("event for unknown agency", zap.String("agency_id", event.AgencyID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Debug("realtime evaluation",
		zap.String("event_type", event.EventType),
		zap.String("agency_id", event.AgencyID.String()),
		zap.Int("created", summary.Created),
		zap.Int("resolved", summary.Resolved),
	)
	return nil
}
