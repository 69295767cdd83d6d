package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetflow/internal/config"
	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeDeliveryBroker struct {
	deliveries chan amqp.Delivery
}

func newFakeDeliveryBroker() *fakeDeliveryBroker {
	return &fakeDeliveryBroker{deliveries: make(chan amqp.Delivery)}
}

func (f *fakeDeliveryBroker) Close() error  { return nil }
func (f *fakeDeliveryBroker) IsAlive() bool { return true }

func (f *fakeDeliveryBroker) PublishTripId(ctx context.Context, tripId string) error {
	return nil
}

func (f *fakeDeliveryBroker) Consume(ctx context.Context, opts ports.ConsumeOptions) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

type fakeWorkerService struct {
	mu    sync.Mutex
	trips []string
	err   error
}

func (f *fakeWorkerService) ProcessTrip(ctx context.Context, tripId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips = append(f.trips, tripId)
	return f.err
}

func (f *fakeWorkerService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trips)
}

type fakeAcknowledger struct {
	acks  chan struct{}
	nacks chan bool
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{acks: make(chan struct{}, 1), nacks: make(chan bool, 1)}
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acks <- struct{}{}
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacks <- requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacks <- requeue
	return nil
}

func newTestConsumer(t *testing.T, ctx context.Context, broker ports.ITelemetryBroker, ws ports.IWorkerService) *ScoringConsumer {
	t.Helper()
	log, err := mylogger.New(mylogger.LevelError)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := &config.Workerconfig{Concurrency: 2, Prefetch: 1}
	return NewScoringConsumer(ctx, cfg, log, broker, ws, metrics.New())
}

// A dropped broker connection closes the delivery channel. Every loop
// exits, and that must be reported instead of leaving the process
// alive with nothing consuming.
func TestConsumerReportsDeliveryChannelClosure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := newFakeDeliveryBroker()
	c := newTestConsumer(t, ctx, broker, &fakeWorkerService{})
	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	close(broker.deliveries)

	select {
	case err := <-c.Dead():
		if err == nil {
			t.Fatal("expected a non-nil death reason")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer death was never reported")
	}
}

func TestConsumerQuietOnGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	broker := newFakeDeliveryBroker()
	c := newTestConsumer(t, ctx, broker, &fakeWorkerService{})
	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	cancel()
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case err := <-c.Dead():
		t.Fatalf("clean shutdown must not look like a failure: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerAcksProcessedDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := newFakeDeliveryBroker()
	ws := &fakeWorkerService{}
	c := newTestConsumer(t, ctx, broker, ws)
	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	ack := newFakeAcknowledger()
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(uuid.NewString())}

	select {
	case <-ack.acks:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was never acknowledged")
	}
	if ws.calls() != 1 {
		t.Errorf("expected 1 processed trip, got %d", ws.calls())
	}
}

// A failure before the claim ran means the trip is still PENDING, so
// the delivery must go back to the queue.
func TestConsumerRequeuesWhenClaimNeverRan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := newFakeDeliveryBroker()
	ws := &fakeWorkerService{err: myerrors.ErrTransientStore}
	c := newTestConsumer(t, ctx, broker, ws)
	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	ack := newFakeAcknowledger()
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(uuid.NewString())}

	select {
	case requeue := <-ack.nacks:
		if !requeue {
			t.Error("delivery must be requeued, not discarded")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was never nacked")
	}
}

func TestConsumerDropsGarbagePayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := newFakeDeliveryBroker()
	ws := &fakeWorkerService{}
	c := newTestConsumer(t, ctx, broker, ws)
	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	ack := newFakeAcknowledger()
	broker.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("not-a-trip-reference")}

	select {
	case <-ack.acks:
	case <-time.After(2 * time.Second):
		t.Fatal("garbage delivery was never acked away")
	}
	if ws.calls() != 0 {
		t.Error("garbage payload must never reach the worker service")
	}
}
