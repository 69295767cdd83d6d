package services

import (
	"context"
	"time"

	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/domain/dto"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/google/uuid"
)

type ScoreService struct {
	mylog      mylogger.Logger
	TripsRepo  ports.ITripsRepo
	ScoresRepo ports.IScoresRepo
	Cache      ports.IScoreCache
}

// NewScoreService builds the read side. cache may be nil, lookups then
// always go to the store.
func NewScoreService(log mylogger.Logger,
	tripsRepo ports.ITripsRepo,
	scoresRepo ports.IScoresRepo,
	cache ports.IScoreCache,
) ports.IScoreService {
	return &ScoreService{
		mylog:      log,
		TripsRepo:  tripsRepo,
		ScoresRepo: scoresRepo,
		Cache:      cache,
	}
}

// GetTripScore never blocks on the worker: it reports the trip's
// current status and attaches the score only once COMPLETED.
func (ss *ScoreService) GetTripScore(ctx context.Context, tripId string) (dto.ScoreResponseDto, error) {
	log := ss.mylog.Action("GetTripScore")

	if _, err := uuid.Parse(tripId); err != nil {
		return dto.ScoreResponseDto{}, myerrors.ErrTripNotFound
	}

	if ss.Cache != nil {
		if score, ok, err := ss.Cache.GetScore(ctx, tripId); err != nil {
			log.Warn("score cache lookup failed", "trip_id", tripId, "err", err)
		} else if ok {
			return scoreToDto(score), nil
		}
	}

	status, err := ss.TripsRepo.GetTripStatus(ctx, tripId)
	if err != nil {
		return dto.ScoreResponseDto{}, err
	}

	if status != model.StatusCompleted {
		return dto.ScoreResponseDto{
			TripId: tripId,
			Status: status,
		}, nil
	}

	score, err := ss.ScoresRepo.GetScore(ctx, tripId)
	if err != nil {
		log.Error("trip is COMPLETED but score row is missing", err, "trip_id", tripId)
		return dto.ScoreResponseDto{}, err
	}

	if ss.Cache != nil {
		if err := ss.Cache.PutScore(ctx, score); err != nil {
			log.Warn("score cache write failed", "trip_id", tripId, "err", err)
		}
	}

	return scoreToDto(score), nil
}

func scoreToDto(score model.DriverScore) dto.ScoreResponseDto {
	return dto.ScoreResponseDto{
		TripId:              score.TripId,
		Status:              model.StatusCompleted,
		SafetyScore:         &score.SafetyScore,
		HarshBrakingCount:   &score.HarshBrakingCount,
		RapidAccelCount:     &score.RapidAccelCount,
		HarshCorneringCount: &score.HarshCorneringCount,
		MaxSpeedKmh:         &score.MaxSpeedKmh,
		CreatedAt:           score.ComputedAt.UTC().Format(time.RFC3339),
	}
}
