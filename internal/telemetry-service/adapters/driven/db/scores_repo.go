package db

import (
	"context"
	"errors"

	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type ScoresRepo struct {
	db *DB
}

func NewScoresRepo(db *DB) ports.IScoresRepo {
	return &ScoresRepo{
		db: db,
	}
}

// InsertScore relies on the primary key on trip_id for the one-score-
// per-trip invariant. A conflicting replay inserts nothing and is
// reported as success, never as a fatal error.
func (sr *ScoresRepo) InsertScore(ctx context.Context, score model.DriverScore) error {
	q := `INSERT INTO driver_scores(
			trip_id,
			safety_score,
			harsh_braking_count,
			rapid_accel_count,
			harsh_cornering_count,
			max_speed_kmh,
			created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (trip_id) DO NOTHING`

	_, err := sr.db.pool.Exec(ctx, q,
		score.TripId,
		score.SafetyScore,
		score.HarshBrakingCount,
		score.RapidAccelCount,
		score.HarshCorneringCount,
		score.MaxSpeedKmh,
		score.ComputedAt,
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (sr *ScoresRepo) GetScore(ctx context.Context, tripId string) (model.DriverScore, error) {
	q := `
	SELECT
		trip_id,
		safety_score,
		harsh_braking_count,
		rapid_accel_count,
		harsh_cornering_count,
		max_speed_kmh,
		created_at
	FROM
		driver_scores
	WHERE
		trip_id = $1`

	row := sr.db.pool.QueryRow(ctx, q, tripId)

	var score model.DriverScore
	err := row.Scan(
		&score.TripId,
		&score.SafetyScore,
		&score.HarshBrakingCount,
		&score.RapidAccelCount,
		&score.HarshCorneringCount,
		&score.MaxSpeedKmh,
		&score.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DriverScore{}, myerrors.ErrTripNotFound
		}
		return model.DriverScore{}, storeErr(err)
	}
	return score, nil
}
