package dto

// TelemetryPointDto mirrors one sample of the submission body. Pointer
// fields so missing keys are distinguishable from zero values.
type TelemetryPointDto struct {
	SpeedKmh   *float64 `json:"speed_kmh"`
	GForceLong *float64 `json:"g_force_long"`
	GForceLat  *float64 `json:"g_force_lat"`
}

type TelemetrySubmissionDto struct {
	VehicleId *string             `json:"vehicle_id"`
	DriverId  *string             `json:"driver_id"`
	Timestamp *string             `json:"timestamp"`
	Data      []TelemetryPointDto `json:"data"`
}

type TripIngestResponseDto struct {
	Status string `json:"status"`
	TripId string `json:"trip_id"`
}

// ScoreResponseDto is the read-side shape. For trips that are not yet
// COMPLETED only TripId and Status are populated.
type ScoreResponseDto struct {
	TripId              string   `json:"trip_id"`
	Status              string   `json:"status,omitempty"`
	SafetyScore         *int     `json:"safety_score,omitempty"`
	HarshBrakingCount   *int     `json:"harsh_braking_count,omitempty"`
	RapidAccelCount     *int     `json:"rapid_accel_count,omitempty"`
	HarshCorneringCount *int     `json:"harsh_cornering_count,omitempty"`
	MaxSpeedKmh         *float64 `json:"max_speed_kmh,omitempty"`
	CreatedAt           string   `json:"created_at,omitempty"`
}
