package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetflow/internal/config"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/redis/go-redis/v9"
)

// ScoreCache keeps completed scores in Redis so repeated polling of
// finished trips stays off the primary store. Scores are immutable, so
// a cached entry can never go stale within its TTL.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.IScoreCache = (*ScoreCache)(nil)

func New(ctx context.Context, cfg *config.Cacheconfig) (ports.IScoreCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &ScoreCache{
		client: client,
		ttl:    time.Duration(cfg.TTLSec) * time.Second,
	}, nil
}

func (sc *ScoreCache) GetScore(ctx context.Context, tripId string) (model.DriverScore, bool, error) {
	val, err := sc.client.Get(ctx, scoreKey(tripId)).Result()
	if errors.Is(err, redis.Nil) {
		return model.DriverScore{}, false, nil
	}
	if err != nil {
		return model.DriverScore{}, false, err
	}

	var score model.DriverScore
	if err := json.Unmarshal([]byte(val), &score); err != nil {
		return model.DriverScore{}, false, err
	}
	return score, true, nil
}

func (sc *ScoreCache) PutScore(ctx context.Context, score model.DriverScore) error {
	b, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return sc.client.Set(ctx, scoreKey(score.TripId), b, sc.ttl).Err()
}

func (sc *ScoreCache) Close() error {
	return sc.client.Close()
}

func scoreKey(tripId string) string {
	return "score:" + tripId
}
