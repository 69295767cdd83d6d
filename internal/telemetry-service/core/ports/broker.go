package ports

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumeOptions struct {
	Prefetch int
	AutoAck  bool
}

type ITelemetryBroker interface {
	Close() error
	IsAlive() bool

	// PublishTripId enqueues a trip reference. The payload is the id
	// only, never the telemetry itself.
	PublishTripId(ctx context.Context, tripId string) error

	Consume(ctx context.Context, opts ConsumeOptions) (<-chan amqp.Delivery, error)
}
