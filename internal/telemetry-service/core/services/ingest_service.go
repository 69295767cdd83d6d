package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/domain/dto"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/google/uuid"
)

const (
	gatewayAttempts  = 3
	gatewayRetryBase = 200 * time.Millisecond
	storeTimeout     = 15 * time.Second
)

type IngestService struct {
	ctx       context.Context
	mylog     mylogger.Logger
	TripsRepo ports.ITripsRepo
	Broker    ports.ITelemetryBroker
}

func NewIngestService(ctx context.Context,
	log mylogger.Logger,
	tripsRepo ports.ITripsRepo,
	broker ports.ITelemetryBroker,
) ports.IIngestService {
	return &IngestService{
		ctx:       ctx,
		mylog:     log,
		TripsRepo: tripsRepo,
		Broker:    broker,
	}
}

// SubmitTelemetry implements the claim-check hand-off: the full payload
// is committed to the trip store first, then only the trip id goes on
// the queue. A consumer can therefore never see a reference whose trip
// is not yet readable.
func (is *IngestService) SubmitTelemetry(req dto.TelemetrySubmissionDto) (dto.TripIngestResponseDto, error) {
	log := is.mylog.Action("SubmitTelemetry")

	if err := validateSubmission(req); err != nil {
		return dto.TripIngestResponseDto{}, fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}

	submittedAt, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return dto.TripIngestResponseDto{}, fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}

	trip := model.Trip{
		Id:          uuid.NewString(),
		VehicleId:   *req.VehicleId,
		DriverId:    *req.DriverId,
		SubmittedAt: submittedAt,
		RawPoints:   toPoints(req.Data),
		Status:      model.StatusPending,
	}

	ctx, cancel := context.WithTimeout(is.ctx, storeTimeout)
	defer cancel()

	var tripId string
	err = withRetry(ctx, gatewayAttempts, gatewayRetryBase, func(ctx context.Context) error {
		var createErr error
		tripId, createErr = is.TripsRepo.CreateTrip(ctx, trip)
		return createErr
	})
	if err != nil {
		log.Error("cannot persist trip", err, "vehicle_id", trip.VehicleId)
		return dto.TripIngestResponseDto{}, err
	}

	err = withRetry(ctx, gatewayAttempts, gatewayRetryBase, func(ctx context.Context) error {
		if pubErr := is.Broker.PublishTripId(ctx, tripId); pubErr != nil {
			return fmt.Errorf("%w: %v", myerrors.ErrPublish, pubErr)
		}
		return nil
	})
	if err != nil {
		// Nothing will ever consume this trip, so it must not stay
		// PENDING forever.
		log.Error("publish failed after retries, marking trip FAILED", err, "trip_id", tripId)
		if failErr := is.TripsRepo.SetTripStatus(ctx, tripId, model.StatusFailed); failErr != nil {
			log.Error("cannot mark unpublished trip FAILED", failErr, "trip_id", tripId)
		}
		return dto.TripIngestResponseDto{}, err
	}

	log.Info("trip queued for analysis", "trip_id", tripId, "points", len(trip.RawPoints))

	return dto.TripIngestResponseDto{
		Status: "QUEUED",
		TripId: tripId,
	}, nil
}

func validateSubmission(req dto.TelemetrySubmissionDto) error {
	if err := validateEntityId("vehicle_id", req.VehicleId); err != nil {
		return err
	}
	if err := validateEntityId("driver_id", req.DriverId); err != nil {
		return err
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("data must be a non-empty array of telemetry points")
	}
	for i, p := range req.Data {
		if err := validatePoint(p); err != nil {
			return fmt.Errorf("data[%d]: %v", i, err)
		}
	}
	return nil
}

func validateEntityId(field string, id *string) error {
	if id == nil || *id == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := uuid.Parse(*id); err != nil {
		return fmt.Errorf("%s must be a valid UUID", field)
	}
	return nil
}

func validatePoint(p dto.TelemetryPointDto) error {
	if p.SpeedKmh == nil || p.GForceLong == nil || p.GForceLat == nil {
		return fmt.Errorf("speed_kmh, g_force_long and g_force_lat are required")
	}
	if *p.SpeedKmh < 0 {
		return fmt.Errorf("speed_kmh must be non-negative")
	}
	for _, v := range []float64{*p.SpeedKmh, *p.GForceLong, *p.GForceLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("numeric fields must be finite")
		}
	}
	return nil
}

func parseTimestamp(ts *string) (time.Time, error) {
	if ts == nil || *ts == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, *ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be RFC3339")
	}
	return t.UTC(), nil
}

func toPoints(data []dto.TelemetryPointDto) []model.TelemetryPoint {
	points := make([]model.TelemetryPoint, 0, len(data))
	for _, p := range data {
		points = append(points, model.TelemetryPoint{
			SpeedKmh:   *p.SpeedKmh,
			GForceLong: *p.GForceLong,
			GForceLat:  *p.GForceLat,
		})
	}
	return points
}
