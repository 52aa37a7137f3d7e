package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aq2208/gstore-api/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }
func WithLogger(l *slog.Logger) RouterOption   { return func(r *Router) { r.log = l } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		log:          logging.New("rabbitmq"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming and returns; consumers stop when ctx is done or the
// channel closes. QoS applies to every consumer on the channel.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}
		go r.consume(ctx, reg, deliveries)
	}
	return nil
}

func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	l := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
	for {
		select {
		case <-ctx.Done():
			l.Info("consumer stopped", "reason", ctx.Err())
			return
		case d, ok := <-msgs:
			if !ok {
				l.Warn("delivery channel closed")
				return
			}
			r.dispatch(ctx, l, reg.handler, d)
		}
	}
}

// dispatch runs h on one delivery and settles it.
func (r *Router) dispatch(ctx context.Context, l *slog.Logger, h Handler, d amqp.Delivery) {
	l = l.With("rk", d.RoutingKey, "message_id", d.MessageId)
	hctx, cancel := context.WithTimeout(logging.WithCtx(ctx, l), r.callTimeout)
	err := h.Handle(hctx, d)
	cancel()

	if err == nil {
		if aerr := d.Ack(false); aerr != nil {
			l.Error("ack failed", "err", aerr)
		}
		return
	}
	requeue := r.requeueOnErr && !errors.Is(err, ErrMalformed) && !d.Redelivered
	l.Warn("handler error", "err", err, "requeue", requeue)
	if nerr := d.Nack(false, requeue); nerr != nil {
		l.Error("nack failed", "err", nerr)
	}
}
