package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/core/domain/dto"
	"fleetflow/internal/telemetry-service/core/domain/model"
	"fleetflow/internal/telemetry-service/core/myerrors"
	"fleetflow/internal/telemetry-service/core/ports"
)

type TelemetryHandler struct {
	ingestService ports.IIngestService
	scoreService  ports.IScoreService
	metrics       *metrics.Metrics
	log           mylogger.Logger
}

func NewTelemetryHandler(is ports.IIngestService, ss ports.IScoreService, m *metrics.Metrics, log mylogger.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		ingestService: is,
		scoreService:  ss,
		metrics:       m,
		log:           log,
	}
}

// IngestTelemetry replies 202 as soon as the trip is durable and its
// reference is queued. It never waits on the scoring worker.
func (th *TelemetryHandler) IngestTelemetry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.TelemetrySubmissionDto{}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			th.metrics.TripsRejected.Inc()
			JsonError(w, http.StatusBadRequest, fmt.Errorf("malformed JSON body: %v", err))
			return
		}

		res, err := th.ingestService.SubmitTelemetry(req)
		if err != nil {
			if errors.Is(err, myerrors.ErrValidation) {
				th.metrics.TripsRejected.Inc()
				JsonError(w, http.StatusBadRequest, err)
				return
			}
			JsonError(w, http.StatusInternalServerError, fmt.Errorf("submission failed, please retry"))
			return
		}

		th.metrics.TripsIngested.Inc()
		th.metrics.MessagesPublished.Inc()
		jsonResponse(w, http.StatusAccepted, res)
	}
}

// GetTripScore reports 404 for unknown trips, 202 while analysis is in
// flight, and 200 with the score (or terminal FAILED status) otherwise.
func (th *TelemetryHandler) GetTripScore() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripId := r.PathValue("trip_id")

		res, err := th.scoreService.GetTripScore(r.Context(), tripId)
		if err != nil {
			if errors.Is(err, myerrors.ErrTripNotFound) {
				JsonError(w, http.StatusNotFound, fmt.Errorf("trip not found"))
				return
			}
			th.log.Error("score lookup failed", err, "trip_id", tripId)
			JsonError(w, http.StatusInternalServerError, fmt.Errorf("lookup failed, please retry"))
			return
		}

		switch res.Status {
		case model.StatusPending, model.StatusProcessing:
			jsonResponse(w, http.StatusAccepted, res)
		default:
			jsonResponse(w, http.StatusOK, res)
		}
	}
}
