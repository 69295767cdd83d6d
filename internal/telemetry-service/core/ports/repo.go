package ports

import (
	"context"

	"fleetflow/internal/telemetry-service/core/domain/model"
)

type ITripsRepo interface {
	// CreateTrip persists a new trip in PENDING status and returns its id.
	CreateTrip(ctx context.Context, trip model.Trip) (string, error)

	GetTrip(ctx context.Context, tripId string) (model.Trip, error)

	GetTripStatus(ctx context.Context, tripId string) (string, error)

	// ClaimTrip is the conditional PENDING -> PROCESSING transition.
	// Returns myerrors.ErrAlreadyClaimed when the trip is no longer
	// PENDING, which makes redelivered messages safe to drop.
	ClaimTrip(ctx context.Context, tripId string) error

	// SetTripStatus moves a claimed trip to a terminal status.
	SetTripStatus(ctx context.Context, tripId, status string) error
}

type IScoresRepo interface {
	// InsertScore writes the score row once. A replay hitting the
	// uniqueness constraint on trip_id is reported as success.
	InsertScore(ctx context.Context, score model.DriverScore) error

	GetScore(ctx context.Context, tripId string) (model.DriverScore, error)
}
