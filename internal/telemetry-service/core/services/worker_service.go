package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/analytics"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeDuplicate = "duplicate"
	outcomeDropped   = "dropped"
)

type WorkerService struct {
	mylog      mylogger.Logger
	TripsRepo  ports.ITripsRepo
	ScoresRepo ports.IScoresRepo
	Metrics    *metrics.Metrics

	maxAttempts int
	retryBase   time.Duration
}

func NewWorkerService(log mylogger.Logger,
	tripsRepo ports.ITripsRepo,
	scoresRepo ports.IScoresRepo,
	m *metrics.Metrics,
	maxAttempts int,
	retryBase time.Duration,
) ports.IWorkerService {
	return &WorkerService{
		mylog:       log,
		TripsRepo:   tripsRepo,
		ScoresRepo:  scoresRepo,
		Metrics:     m,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
	}
}

// ProcessTrip drives the trip state machine for one delivered message:
//
//	PENDING -> PROCESSING -> COMPLETED
//	            PROCESSING -> FAILED
//
// The conditional claim in step 1 is the sole concurrency guard, so a
// redelivered or concurrently delivered reference degrades to a no-op.
// A nil return means the message can be acknowledged.
func (ws *WorkerService) ProcessTrip(ctx context.Context, tripId string) error {
	log := ws.mylog.Action("ProcessTrip").With("trip_id", tripId)

	// Step 1: compare-and-set PENDING -> PROCESSING.
	err := withRetry(ctx, ws.maxAttempts, ws.retryBase, func(ctx context.Context) error {
		return ws.TripsRepo.ClaimTrip(ctx, tripId)
	})
	switch {
	case errors.Is(err, myerrors.ErrAlreadyClaimed):
		log.Info("trip already claimed, acknowledging duplicate delivery")
		ws.countOutcome(outcomeDuplicate)
		return nil
	case errors.Is(err, myerrors.ErrTripNotFound):
		log.Warn("trip not found in store, dropping message")
		ws.countOutcome(outcomeDropped)
		return nil
	case err != nil:
		// The store is unreachable, the trip is still PENDING and the
		// unacked message will be redelivered.
		log.Error("cannot claim trip", err)
		return err
	}

	// Steps 2-5. Any unrecoverable error here lands the trip in FAILED
	// and still acknowledges the message.
	if err := ws.scoreClaimedTrip(ctx, tripId); err != nil {
		log.Error("processing failed, marking trip FAILED", err)
		ws.markFailed(ctx, log, tripId)
		ws.countOutcome(outcomeFailed)
		return nil
	}

	log.Info("trip scored")
	ws.countOutcome(outcomeCompleted)
	return nil
}

func (ws *WorkerService) scoreClaimedTrip(ctx context.Context, tripId string) error {
	var trip model.Trip
	err := withRetry(ctx, ws.maxAttempts, ws.retryBase, func(ctx context.Context) error {
		var getErr error
		trip, getErr = ws.TripsRepo.GetTrip(ctx, tripId)
		return getErr
	})
	if err != nil {
		return fmt.Errorf("fetch trip payload: %w", err)
	}

	// The gateway guarantees non-empty points; an empty payload here
	// means the stored row is corrupt.
	if len(trip.RawPoints) == 0 {
		return fmt.Errorf("%w: trip has no telemetry points", myerrors.ErrProcessing)
	}

	m := analytics.CalculateSafetyScore(trip.RawPoints)

	score := model.DriverScore{
		TripId:              tripId,
		SafetyScore:         m.SafetyScore,
		HarshBrakingCount:   m.HarshBrakingCount,
		RapidAccelCount:     m.RapidAccelCount,
		HarshCorneringCount: m.HarshCorneringCount,
		MaxSpeedKmh:         m.MaxSpeedKmh,
		ComputedAt:          time.Now().UTC(),
	}

	err = withRetry(ctx, ws.maxAttempts, ws.retryBase, func(ctx context.Context) error {
		return ws.ScoresRepo.InsertScore(ctx, score)
	})
	if err != nil {
		return fmt.Errorf("persist score: %w", err)
	}

	err = withRetry(ctx, ws.maxAttempts, ws.retryBase, func(ctx context.Context) error {
		return ws.TripsRepo.SetTripStatus(ctx, tripId, model.StatusCompleted)
	})
	if err != nil {
		return fmt.Errorf("complete trip: %w", err)
	}

	return nil
}

func (ws *WorkerService) markFailed(ctx context.Context, log mylogger.Logger, tripId string) {
	err := withRetry(ctx, ws.maxAttempts, ws.retryBase, func(ctx context.Context) error {
		return ws.TripsRepo.SetTripStatus(ctx, tripId, model.StatusFailed)
	})
	if err != nil {
		log.Error("cannot mark trip FAILED", err)
	}
}

func (ws *WorkerService) countOutcome(outcome string) {
	if ws.Metrics != nil {
		ws.Metrics.TripsProcessed.WithLabelValues(outcome).Inc()
	}
}
