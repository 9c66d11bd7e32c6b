// FilePath: api/resources/api.resource.telemetry.go
package resources

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/farmservice"
	nuts "github.com/vaudience/go-nuts"
)

// TelemetryHandlers encapsulates the telemetry read-side HTTP handlers
type TelemetryHandlers struct {
	farmservice *farmservice.FarmService
}

// parseTimeRange reads optional RFC3339 start/end query parameters. A zero
// time means unbounded on that side.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	query := r.URL.Query()
	if v := query.Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := query.Get("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

// @Summary Latest telemetry
// @Description Get the newest reading and derived index for the farm
// @Tags telemetry
// @Produce json
// @Param farmID path string true "Farm ID"
// @Success 200 {object} farmservice.TelemetrySnapshot
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/telemetry/latest [get]
// @Security BearerAuth
func (h *TelemetryHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	snapshot, err := h.farmservice.LatestTelemetry(r.Context(), mux.Vars(r)["farmID"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// @Summary Reading history
// @Description Get the newest raw readings in ascending time order, optionally bounded by start/end
// @Tags telemetry
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param start query string false "RFC3339 range start (inclusive)"
// @Param end query string false "RFC3339 range end (exclusive)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.Reading
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/telemetry/readings [get]
// @Security BearerAuth
func (h *TelemetryHandlers) GetReadings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError("start/end must be RFC3339 timestamps", err).WithRequestID(requestID))
		return
	}

	readings, err := h.farmservice.ReadingHistory(r.Context(), mux.Vars(r)["farmID"],
		start, end, getLimitParam(r, 500))
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary Derived index history
// @Description Get the newest derived indices in ascending time order, optionally bounded by start/end
// @Tags telemetry
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param start query string false "RFC3339 range start (inclusive)"
// @Param end query string false "RFC3339 range end (exclusive)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.DerivedIndex
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/telemetry/indices [get]
// @Security BearerAuth
func (h *TelemetryHandlers) GetIndices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError("start/end must be RFC3339 timestamps", err).WithRequestID(requestID))
		return
	}

	indices, err := h.farmservice.IndexHistory(r.Context(), mux.Vars(r)["farmID"],
		start, end, getLimitParam(r, 500))
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, indices)
}
