package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleetflow/internal/config"
	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ScoringConsumer runs N independent receive loops against the
// analysis queue. Each loop processes one message at a time, end to
// end, and acknowledges only after the worker service is done with it.
type ScoringConsumer struct {
	ctx     context.Context
	cfg     *config.Workerconfig
	log     mylogger.Logger
	broker  ports.ITelemetryBroker
	worker  ports.IWorkerService
	metrics *metrics.Metrics

	mu   sync.Mutex
	wg   sync.WaitGroup
	dead chan error
}

func NewScoringConsumer(
	ctx context.Context,
	cfg *config.Workerconfig,
	log mylogger.Logger,
	broker ports.ITelemetryBroker,
	worker ports.IWorkerService,
	m *metrics.Metrics,
) *ScoringConsumer {
	return &ScoringConsumer{
		ctx:     ctx,
		cfg:     cfg,
		log:     log,
		broker:  broker,
		worker:  worker,
		metrics: m,
		dead:    make(chan error, 1),
	}
}

func (c *ScoringConsumer) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.log.Action("scoring-consumer-run")

	msgs, err := c.broker.Consume(c.ctx, ports.ConsumeOptions{
		Prefetch: c.cfg.Prefetch,
		AutoAck:  false,
	})
	if err != nil {
		l.Action("consume_failed").Error("cannot start consuming", err)
		return err
	}

	for i := 0; i < c.cfg.Concurrency; i++ {
		c.wg.Add(1)
		go c.loop(msgs)
	}
	go c.watch()

	l.Action("consumer_started").Info("scoring consumer started",
		"concurrency", c.cfg.Concurrency, "prefetch", c.cfg.Prefetch)

	return nil
}

// Dead reports an unrecoverable consumer stop. The amqp library closes
// the delivery channel when the connection drops, and a worker process
// that can no longer receive must not stay up looking healthy.
func (c *ScoringConsumer) Dead() <-chan error {
	return c.dead
}

func (c *ScoringConsumer) watch() {
	c.wg.Wait()
	if c.ctx.Err() != nil {
		// Normal shutdown, the loops exited on context.
		return
	}
	select {
	case c.dead <- errors.New("delivery channel closed"):
	default:
	}
}

func (c *ScoringConsumer) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Action("shutdown").Info("graceful shutdown started")
	c.wg.Wait()
	c.log.Action("shutdown_done").Info("graceful shutdown done")
	return nil
}

func (c *ScoringConsumer) loop(msgs <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			c.log.Info("stop consumer: context done")
			return
		case m, ok := <-msgs:
			if !ok {
				c.log.Info("stop consumer: channel closed")
				return
			}
			c.handle(m)
		}
	}
}

func (c *ScoringConsumer) handle(msg amqp.Delivery) {
	start := time.Now()

	tripId := string(msg.Body)
	if _, err := uuid.Parse(tripId); err != nil {
		// Not a trip reference at all, nothing in the store to fail.
		c.log.Error("invalid message body, dropping", err, "body", tripId)
		_ = msg.Ack(false)
		return
	}

	if err := c.worker.ProcessTrip(c.ctx, tripId); err != nil {
		// The claim never happened, requeue so another delivery can
		// pick the trip up once the store is reachable again.
		c.log.Error("process error, requeueing", err, "trip_id", tripId)
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
	if c.metrics != nil {
		c.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}
}
