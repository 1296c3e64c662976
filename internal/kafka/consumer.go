package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/model"
)

// Saver persists notifications produced by upstream events. Implemented
// by service.NotificationService.
type Saver interface {
	SaveNotification(ctx context.Context, n *model.Notification) (*model.Notification, error)
}

// notificationEvent is the wire format published by producing systems
type notificationEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id" validate:"required"`
	Origin      string `json:"origin"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Severity    string `json:"severity" validate:"required,oneof=critical high normal low"`
	Topic       string `json:"topic"`
	Scope       string `json:"scope"`
	Icon        string `json:"icon"`
}

// Consumer reads notification events and persists them through the
// store. It is the in-process end of the event-ingestion pipeline; the
// decision whether an event becomes a notification is made upstream.
type Consumer struct {
	reader   *kafka.Reader
	saver    Saver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewConsumer creates a new Kafka consumer in the given consumer group
func NewConsumer(brokers []string, topic, groupID string, saver Saver, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		saver:    saver,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run consumes messages until the context is cancelled. Fetch errors
// are retried with exponential backoff; malformed or invalid events are
// logged and dropped so a poison message cannot stall the partition.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry until cancelled

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}

			wait := bo.NextBackOff()
			c.logger.Error("Failed to read message, backing off",
				zap.Error(err),
				zap.Duration("backoff", wait))

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		bo.Reset()

		if err := c.processMessage(ctx, msg); err != nil {
			// Storage errors are worth retrying on redelivery; with
			// ReadMessage the offset is already committed, so surface
			// loudly instead.
			c.logger.Error("Failed to process notification event",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset))
		}
	}
}

// processMessage decodes, validates, and persists a single event
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event notificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("Dropping malformed notification event",
			zap.Error(err),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	if err := c.validate.Struct(event); err != nil {
		c.logger.Warn("Dropping invalid notification event",
			zap.Error(err),
			zap.String("user_id", event.UserID),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	_, err := c.saver.SaveNotification(ctx, &model.Notification{
		ID:          event.ID,
		UserID:      event.UserID,
		Origin:      event.Origin,
		Title:       event.Title,
		Description: event.Description,
		Link:        event.Link,
		Severity:    model.Severity(event.Severity),
		Topic:       event.Topic,
		Scope:       event.Scope,
		Icon:        event.Icon,
	})
	return err
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
