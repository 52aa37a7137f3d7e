package queue

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMalformed marks a delivery that can never succeed; the router drops it
// instead of requeueing.
var ErrMalformed = errors.New("malformed message")

// Handler processes a single delivery. It should be idempotent.
// Return nil => ACK; return error => NACK (requeue controlled by Router).
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}
