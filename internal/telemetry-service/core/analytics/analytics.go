package analytics

import (
	"math"

	"fleetflow/internal/telemetry-service/core/domain/model"
)

const (
	HarshBrakingThreshold   = -0.4 // longitudinal g
	RapidAccelThreshold     = 0.4
	HarshCorneringThreshold = 0.3 // absolute lateral g

	BaseScore       = 100
	PenaltyPerEvent = 5
)

// Metrics is the result of scoring one ordered telemetry sequence.
// HarshCornering and MaxSpeed are informational only and do not feed
// the safety score.
type Metrics struct {
	SafetyScore         int
	HarshBrakingCount   int
	RapidAccelCount     int
	HarshCorneringCount int
	MaxSpeedKmh         float64
}

// CalculateSafetyScore is deterministic and does no I/O. Input is
// assumed non-empty, the gateway rejects empty submissions.
func CalculateSafetyScore(points []model.TelemetryPoint) Metrics {
	m := Metrics{}

	for _, p := range points {
		if p.GForceLong < HarshBrakingThreshold {
			m.HarshBrakingCount++
		}
		if p.GForceLong > RapidAccelThreshold {
			m.RapidAccelCount++
		}
		if math.Abs(p.GForceLat) > HarshCorneringThreshold {
			m.HarshCorneringCount++
		}
		if p.SpeedKmh > m.MaxSpeedKmh {
			m.MaxSpeedKmh = p.SpeedKmh
		}
	}

	penalty := PenaltyPerEvent * (m.HarshBrakingCount + m.RapidAccelCount)
	m.SafetyScore = clamp(BaseScore-penalty, 0, BaseScore)

	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
