package model

import "time"

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// TelemetryPoint is one sensor sample, ordered by collection time
// within its trip.
type TelemetryPoint struct {
	SpeedKmh   float64 `json:"speed_kmh"`
	GForceLong float64 `json:"g_force_long"`
	GForceLat  float64 `json:"g_force_lat"`
}

// Trip is one submitted telemetry batch. Status only ever advances
// PENDING -> PROCESSING -> COMPLETED, or PROCESSING -> FAILED.
type Trip struct {
	Id          string
	VehicleId   string
	DriverId    string
	SubmittedAt time.Time
	RawPoints   []TelemetryPoint
	Status      string
	UpdatedAt   time.Time
}

// DriverScore is the single analysis result for a trip, written exactly
// once by the worker.
type DriverScore struct {
	TripId              string
	SafetyScore         int
	HarshBrakingCount   int
	RapidAccelCount     int
	HarshCorneringCount int
	MaxSpeedKmh         float64
	ComputedAt          time.Time
}
