package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsTTL = 90 * 24 * time.Hour

// ConversionConsumer consumes conversion events from JetStream and
// maintains per-tenant daily revenue counters in Redis, the feed behind
// the client dashboards.
type ConversionConsumer struct {
	js     nats.JetStreamContext
	rdb    *redis.Client
	logger *zap.Logger
}

// NewConversionConsumer creates a new conversion event consumer.
func NewConversionConsumer(js nats.JetStreamContext, rdb *redis.Client, logger *zap.Logger) *ConversionConsumer {
	return &ConversionConsumer{js: js, rdb: rdb, logger: logger}
}

// Start provisions the stream and durable consumer, then consumes in
// the background.
func (c *ConversionConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ConversionStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ConversionStreamName,
			Subjects: []string{model.ConversionStreamSubject},
			MaxBytes: model.ConversionStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ConversionStreamName, model.ConversionConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ConversionStreamName, &nats.ConsumerConfig{
			Durable:   model.ConversionConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ConversionStreamSubject, model.ConversionConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ConversionConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ConversionEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal conversion event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.tally(ctx, event); err != nil {
				c.logger.Error("failed to update conversion stats",
					zap.String("id", event.ID),
					zap.Int64("tenant_id", event.TenantID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("conversion stats updated",
				zap.String("id", event.ID),
				zap.Int64("tenant_id", event.TenantID),
				zap.String("invoice_id", event.InvoiceID),
			)

			msg.Ack()
		}
	}
}

// tally bumps the tenant's daily conversion count and revenue sum.
func (c *ConversionConsumer) tally(ctx context.Context, event model.ConversionEvent) error {
	day := event.PaidAt.UTC().Format("2006-01-02")
	countKey := fmt.Sprintf("stats:%d:%s:conversions", event.TenantID, day)
	amountKey := fmt.Sprintf("stats:%d:%s:revenue_cents", event.TenantID, day)

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, countKey)
	pipe.Expire(ctx, countKey, statsTTL)
	pipe.IncrBy(ctx, amountKey, event.AmountCents)
	pipe.Expire(ctx, amountKey, statsTTL)
	_, err := pipe.Exec(ctx)
	return err
}
