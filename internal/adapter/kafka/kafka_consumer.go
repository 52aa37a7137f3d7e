package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/aq2208/gstore-api/internal/adapter/observ"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// HandlerFunc processes a decoded payment event.
type HandlerFunc func(ctx context.Context, ev usecase.PaymentEventMsg) error

// Consumer consumes payment topics with a single handler.
type Consumer struct {
	Group      sarama.ConsumerGroup
	Topics     []string
	Handle     HandlerFunc
	RetryDelay time.Duration
	Logger     *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:      group,
		Topics:     topics,
		Handle:     h,
		RetryDelay: 2 * time.Second,
		Logger:     logging.New("kafka"),
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()
	handler := &cgHandler{handle: c.Handle, retryDelay: c.RetryDelay, log: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// Consume returns on rebalance or cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle     HandlerFunc
	retryDelay time.Duration
	log        *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		l := h.log.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
		var ev usecase.PaymentEventMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			l.Warn("kafka decode error", "err", err)
			observ.EventConsumed("kafka", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if !h.apply(sess.Context(), l, ev) {
			// session ended mid-retry; the offset stays unmarked for the next owner
			return nil
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// apply retries retryable failures in place so later events on the partition
// never overtake this one. It reports false when the session ends first.
func (h *cgHandler) apply(ctx context.Context, l *slog.Logger, ev usecase.PaymentEventMsg) bool {
	ctx = logging.WithCtx(ctx, l)
	for {
		err := h.handle(ctx, ev)
		observ.EventConsumed("kafka", err)
		if err == nil {
			return true
		}
		if !errors.Is(err, usecase.ErrRetryable) {
			l.Error("payment event dropped", "err", err)
			return true
		}
		l.Warn("payment event will be retried", "err", err, "delay", h.retryDelay)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(h.retryDelay):
		}
	}
}
