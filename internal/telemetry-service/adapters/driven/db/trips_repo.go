package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type TripsRepo struct {
	db *DB
}

func NewTripsRepo(db *DB) ports.ITripsRepo {
	return &TripsRepo{
		db: db,
	}
}

func (tr *TripsRepo) CreateTrip(ctx context.Context, trip model.Trip) (string, error) {
	blob, err := json.Marshal(trip.RawPoints)
	if err != nil {
		return "", fmt.Errorf("marshal telemetry: %w", err)
	}

	q := `INSERT INTO trips(
			trip_id,
			vehicle_id,
			driver_id,
			submitted_at,
			telemetry,
			status
			) VALUES ($1, $2, $3, $4, $5, $6) RETURNING trip_id`

	row := tr.db.pool.QueryRow(ctx, q,
		trip.Id,
		trip.VehicleId,
		trip.DriverId,
		trip.SubmittedAt,
		blob,
		trip.Status,
	)

	tripId := ""
	if err := row.Scan(&tripId); err != nil {
		return "", storeErr(err)
	}
	return tripId, nil
}

func (tr *TripsRepo) GetTrip(ctx context.Context, tripId string) (model.Trip, error) {
	q := `
	SELECT
		trip_id,
		vehicle_id,
		driver_id,
		submitted_at,
		telemetry,
		status,
		updated_at
	FROM
		trips
	WHERE
		trip_id = $1`

	row := tr.db.pool.QueryRow(ctx, q, tripId)

	var (
		trip model.Trip
		blob []byte
	)
	err := row.Scan(&trip.Id, &trip.VehicleId, &trip.DriverId, &trip.SubmittedAt, &blob, &trip.Status, &trip.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trip{}, myerrors.ErrTripNotFound
		}
		return model.Trip{}, storeErr(err)
	}

	if err := json.Unmarshal(blob, &trip.RawPoints); err != nil {
		return model.Trip{}, fmt.Errorf("%w: %v", myerrors.ErrProcessing, err)
	}
	return trip, nil
}

func (tr *TripsRepo) GetTripStatus(ctx context.Context, tripId string) (string, error) {
	q := `SELECT status FROM trips WHERE trip_id = $1`

	row := tr.db.pool.QueryRow(ctx, q, tripId)

	status := ""
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", myerrors.ErrTripNotFound
		}
		return "", storeErr(err)
	}
	return status, nil
}

// ClaimTrip is the single atomic conditional update coordinating
// concurrent consumers. No lock is held, a crash after the claim leaves
// a PROCESSING row but never a half-applied transition.
func (tr *TripsRepo) ClaimTrip(ctx context.Context, tripId string) error {
	q := `
	UPDATE
		trips
	SET
		status = 'PROCESSING',
		updated_at = NOW()
	WHERE
		trip_id = $1 AND status = 'PENDING'`

	ct, err := tr.db.pool.Exec(ctx, q, tripId)
	if err != nil {
		return storeErr(err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Lost the race or the trip never existed.
	if _, err := tr.GetTripStatus(ctx, tripId); err != nil {
		return err
	}
	return myerrors.ErrAlreadyClaimed
}

// SetTripStatus advances a trip to a terminal status. Terminal rows are
// never moved again, the status graph only goes forward.
func (tr *TripsRepo) SetTripStatus(ctx context.Context, tripId, status string) error {
	q := `
	UPDATE
		trips
	SET
		status = $2,
		updated_at = NOW()
	WHERE
		trip_id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`

	ct, err := tr.db.pool.Exec(ctx, q, tripId, status)
	if err != nil {
		return storeErr(err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := tr.GetTripStatus(ctx, tripId); err != nil {
			return err
		}
		// Already terminal, nothing to do for an idempotent replay.
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", myerrors.ErrTransientStore, err)
}
