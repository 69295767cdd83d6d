package ports

import (
	"context"

	"fleetflow/internal/telemetry-service/core/domain/dto"
)

type IIngestService interface {
	// SubmitTelemetry validates, persists the trip as PENDING, publishes
	// its reference, and returns without waiting on analysis.
	SubmitTelemetry(req dto.TelemetrySubmissionDto) (dto.TripIngestResponseDto, error)
}

type IScoreService interface {
	GetTripScore(ctx context.Context, tripId string) (dto.ScoreResponseDto, error)
}

type IWorkerService interface {
	// ProcessTrip runs the full claim-score-persist-complete cycle for
	// one delivered trip reference. It is safe to call more than once
	// for the same trip.
	ProcessTrip(ctx context.Context, tripId string) error
}
