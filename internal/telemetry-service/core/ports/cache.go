package ports

import (
	"context"

	"fleetflow/internal/telemetry-service/core/domain/model"
)

// IScoreCache fronts the score store on the read path. A miss is
// reported as (zero value, false, nil); errors mean the cache itself
// misbehaved and the caller falls through to the store.
type IScoreCache interface {
	GetScore(ctx context.Context, tripId string) (model.DriverScore, bool, error)
	PutScore(ctx context.Context, score model.DriverScore) error
	Close() error
}
