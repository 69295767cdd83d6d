package services

import (
	"context"
	"sync"

	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// popErr consumes the next queued error, nil means the call succeeds.
func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

type fakeTripsRepo struct {
	mu    sync.Mutex
	trips map[string]*model.Trip

	createErrs []error
	getErrs    []error
	claimErrs  []error
	setErrs    []error

	createCalls int
	claimCalls  int
	setCalls    int
}

func newFakeTripsRepo() *fakeTripsRepo {
	return &fakeTripsRepo{trips: map[string]*model.Trip{}}
}

func (f *fakeTripsRepo) CreateTrip(ctx context.Context, trip model.Trip) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if err := popErr(&f.createErrs); err != nil {
		return "", err
	}
	f.trips[trip.Id] = &trip
	return trip.Id, nil
}

func (f *fakeTripsRepo) GetTrip(ctx context.Context, tripId string) (model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.getErrs); err != nil {
		return model.Trip{}, err
	}
	trip, ok := f.trips[tripId]
	if !ok {
		return model.Trip{}, myerrors.ErrTripNotFound
	}
	return *trip, nil
}

func (f *fakeTripsRepo) GetTripStatus(ctx context.Context, tripId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripId]
	if !ok {
		return "", myerrors.ErrTripNotFound
	}
	return trip.Status, nil
}

func (f *fakeTripsRepo) ClaimTrip(ctx context.Context, tripId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	if err := popErr(&f.claimErrs); err != nil {
		return err
	}
	trip, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	if trip.Status != model.StatusPending {
		return myerrors.ErrAlreadyClaimed
	}
	trip.Status = model.StatusProcessing
	return nil
}

func (f *fakeTripsRepo) SetTripStatus(ctx context.Context, tripId, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if err := popErr(&f.setErrs); err != nil {
		return err
	}
	trip, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	if trip.Status == model.StatusCompleted || trip.Status == model.StatusFailed {
		return nil
	}
	trip.Status = status
	return nil
}

type fakeScoresRepo struct {
	mu     sync.Mutex
	scores map[string]model.DriverScore

	insertErrs []error
	getErrs    []error

	insertCalls int
}

func newFakeScoresRepo() *fakeScoresRepo {
	return &fakeScoresRepo{scores: map[string]model.DriverScore{}}
}

func (f *fakeScoresRepo) InsertScore(ctx context.Context, score model.DriverScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if err := popErr(&f.insertErrs); err != nil {
		return err
	}
	if _, ok := f.scores[score.TripId]; ok {
		// conflict on trip_id, row is left untouched
		return nil
	}
	f.scores[score.TripId] = score
	return nil
}

func (f *fakeScoresRepo) GetScore(ctx context.Context, tripId string) (model.DriverScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.getErrs); err != nil {
		return model.DriverScore{}, err
	}
	score, ok := f.scores[tripId]
	if !ok {
		return model.DriverScore{}, myerrors.ErrTripNotFound
	}
	return score, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	published []string

	publishErrs []error
}

func (f *fakeBroker) PublishTripId(ctx context.Context, tripId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.publishErrs); err != nil {
		return err
	}
	f.published = append(f.published, tripId)
	return nil
}

func (f *fakeBroker) Consume(ctx context.Context, opts ports.ConsumeOptions) (<-chan amqp.Delivery, error) {
	return nil, nil
}

func (f *fakeBroker) IsAlive() bool { return true }
func (f *fakeBroker) Close() error  { return nil }

type fakeScoreCache struct {
	mu     sync.Mutex
	scores map[string]model.DriverScore

	getErrs []error
	puts    int
	hits    int
}

func newFakeScoreCache() *fakeScoreCache {
	return &fakeScoreCache{scores: map[string]model.DriverScore{}}
}

func (f *fakeScoreCache) GetScore(ctx context.Context, tripId string) (model.DriverScore, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.getErrs); err != nil {
		return model.DriverScore{}, false, err
	}
	score, ok := f.scores[tripId]
	if ok {
		f.hits++
	}
	return score, ok, nil
}

func (f *fakeScoreCache) PutScore(ctx context.Context, score model.DriverScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.scores[score.TripId] = score
	return nil
}

func (f *fakeScoreCache) Close() error { return nil }
