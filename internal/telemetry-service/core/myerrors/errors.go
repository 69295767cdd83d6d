package myerrors

import "errors"

var (
	// ErrValidation covers structurally bad submissions. Nothing is
	// persisted when it is returned.
	ErrValidation = errors.New("invalid submission")

	// ErrTripNotFound means the trip id was never issued by this service.
	ErrTripNotFound = errors.New("trip not found")

	// ErrTransientStore marks store failures worth retrying with backoff.
	ErrTransientStore = errors.New("store temporarily unavailable")

	// ErrPublish marks a failed enqueue after a durable trip write.
	ErrPublish = errors.New("failed to publish trip reference")

	// ErrProcessing marks stored telemetry the engine cannot score.
	ErrProcessing = errors.New("stored telemetry is malformed")

	// ErrAlreadyClaimed is the compare-and-set miss: some consumer has
	// already moved the trip out of PENDING.
	ErrAlreadyClaimed = errors.New("trip already claimed")
)
