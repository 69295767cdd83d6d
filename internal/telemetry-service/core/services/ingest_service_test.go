package services

import (
	"context"
	"errors"
	"testing"

	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/domain/dto"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"

	"github.com/google/uuid"
)

func testLogger(t *testing.T) mylogger.Logger {
	t.Helper()
	log, err := mylogger.New(mylogger.LevelError)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func pointDto(speed, gLong, gLat float64) dto.TelemetryPointDto {
	return dto.TelemetryPointDto{SpeedKmh: f64Ptr(speed), GForceLong: f64Ptr(gLong), GForceLat: f64Ptr(gLat)}
}

func validSubmission() dto.TelemetrySubmissionDto {
	return dto.TelemetrySubmissionDto{
		VehicleId: strPtr(uuid.NewString()),
		DriverId:  strPtr(uuid.NewString()),
		Data: []dto.TelemetryPointDto{
			pointDto(50, 0.1, 0),
			pointDto(55, -0.5, 0),
		},
	}
}

func TestSubmitTelemetryHappyPath(t *testing.T) {
	tripsRepo := newFakeTripsRepo()
	broker := &fakeBroker{}
	svc := NewIngestService(context.Background(), testLogger(t), tripsRepo, broker)

	res, err := svc.SubmitTelemetry(validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != "QUEUED" {
		t.Errorf("expected status QUEUED, got %q", res.Status)
	}
	if _, err := uuid.Parse(res.TripId); err != nil {
		t.Errorf("trip_id is not a UUID: %q", res.TripId)
	}

	trip, ok := tripsRepo.trips[res.TripId]
	if !ok {
		t.Fatal("trip was not persisted")
	}
	if trip.Status != model.StatusPending {
		t.Errorf("expected persisted status PENDING, got %q", trip.Status)
	}
	if len(trip.RawPoints) != 2 {
		t.Errorf("expected 2 points persisted, got %d", len(trip.RawPoints))
	}

	if len(broker.published) != 1 || broker.published[0] != res.TripId {
		t.Errorf("expected exactly the trip id published once, got %v", broker.published)
	}
}

func TestSubmitTelemetryEmptyDataRejected(t *testing.T) {
	tripsRepo := newFakeTripsRepo()
	broker := &fakeBroker{}
	svc := NewIngestService(context.Background(), testLogger(t), tripsRepo, broker)

	req := validSubmission()
	req.Data = nil

	_, err := svc.SubmitTelemetry(req)
	if !errors.Is(err, myerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if tripsRepo.createCalls != 0 {
		t.Error("no trip must be created for an invalid submission")
	}
	if len(broker.published) != 0 {
		t.Error("nothing must be published for an invalid submission")
	}
}

func TestSubmitTelemetryValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.TelemetrySubmissionDto)
	}{
		{"missing vehicle_id", func(r *dto.TelemetrySubmissionDto) { r.VehicleId = nil }},
		{"vehicle_id not a uuid", func(r *dto.TelemetrySubmissionDto) { r.VehicleId = strPtr("truck-7") }},
		{"missing driver_id", func(r *dto.TelemetrySubmissionDto) { r.DriverId = strPtr("") }},
		{"negative speed", func(r *dto.TelemetrySubmissionDto) { r.Data[0].SpeedKmh = f64Ptr(-5) }},
		{"missing g_force_long", func(r *dto.TelemetrySubmissionDto) { r.Data[1].GForceLong = nil }},
		{"bad timestamp", func(r *dto.TelemetrySubmissionDto) { r.Timestamp = strPtr("yesterday") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tripsRepo := newFakeTripsRepo()
			svc := NewIngestService(context.Background(), testLogger(t), tripsRepo, &fakeBroker{})

			req := validSubmission()
			tc.mutate(&req)

			if _, err := svc.SubmitTelemetry(req); !errors.Is(err, myerrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tripsRepo.createCalls != 0 {
				t.Error("no trip must be created for an invalid submission")
			}
		})
	}
}

func TestSubmitTelemetryRetriesTransientStoreError(t *testing.T) {
	tripsRepo := newFakeTripsRepo()
	tripsRepo.createErrs = []error{myerrors.ErrTransientStore}
	broker := &fakeBroker{}
	svc := NewIngestService(context.Background(), testLogger(t), tripsRepo, broker)

	res, err := svc.SubmitTelemetry(validSubmission())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if tripsRepo.createCalls != 2 {
		t.Errorf("expected 2 create attempts, got %d", tripsRepo.createCalls)
	}
	if len(broker.published) != 1 || broker.published[0] != res.TripId {
		t.Errorf("expected publish after retried write, got %v", broker.published)
	}
}

func TestSubmitTelemetryPublishFailureMarksTripFailed(t *testing.T) {
	tripsRepo := newFakeTripsRepo()
	broker := &fakeBroker{publishErrs: []error{
		errors.New("amqp closed"),
		errors.New("amqp closed"),
		errors.New("amqp closed"),
	}}
	svc := NewIngestService(context.Background(), testLogger(t), tripsRepo, broker)

	_, err := svc.SubmitTelemetry(validSubmission())
	if !errors.Is(err, myerrors.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}

	// The trip must not be left PENDING with no message to consume it.
	if len(tripsRepo.trips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(tripsRepo.trips))
	}
	for _, trip := range tripsRepo.trips {
		if trip.Status != model.StatusFailed {
			t.Errorf("expected trip FAILED after publish gave up, got %q", trip.Status)
		}
	}
}
