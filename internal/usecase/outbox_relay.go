package usecase

import (
	"context"
	"time"

	"github.com/aq2208/gstore-api/internal/logging"
)

// OutboxRelay drains committed outbox rows to the event publisher.
type OutboxRelay struct {
	repo      OutboxRepo
	pub       EventPublisher
	interval  time.Duration
	batchSize int
	onPublish func(topic string, err error)
}

func NewOutboxRelay(repo OutboxRepo, pub EventPublisher, interval time.Duration, batchSize int) *OutboxRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{repo: repo, pub: pub, interval: interval, batchSize: batchSize}
}

// OnPublish registers a hook called after each publish attempt.
func (r *OutboxRelay) OnPublish(fn func(topic string, err error)) { r.onPublish = fn }

// Run blocks until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil {
			logging.FromCtx(ctx).Error("outbox drain failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Drain publishes one batch in id order and stops at the first failure so
// events keep their order. It returns the number of rows sent.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	recs, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range recs {
		err := r.pub.Publish(ctx, rec.Topic, rec.Key, rec.Payload)
		if r.onPublish != nil {
			r.onPublish(rec.Topic, err)
		}
		if err != nil {
			return sent, err
		}
		if err := r.repo.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
