// FilePath: api/resources/api.resource.device.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/farmservice"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceHandlers encapsulates the device-facing HTTP handlers. These are the
// endpoints the field controller hits: report a sample, poll for work,
// acknowledge what it did, post its heartbeat.
type DeviceHandlers struct {
	farmservice *farmservice.FarmService
}

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// PollQuery is the query string of a command poll
type PollQuery struct {
	FarmID    string `schema:"farm_id"`
	DeviceKey string `schema:"device_key"`
}

// AckRequest is the device's report of a finished command
type AckRequest struct {
	FarmID            string               `json:"farm_id"`
	DeviceKey         string               `json:"device_key"`
	CommandID         string               `json:"command_id"`
	Status            models.CommandStatus `json:"status"`
	ActualDurationSec int                  `json:"actual_duration_sec"`
}

// @Summary Report a sensor sample
// @Description Store a telemetry sample and run the evaluation pipeline
// @Tags device
// @Accept json
// @Produce json
// @Param report body farmservice.SensorReport true "Sensor sample"
// @Success 201 {object} farmservice.IngestResult
// @Failure 400 {object} errors.APIError
// @Failure 403 {object} errors.APIError
// @Router /device/sensor [post]
func (h *DeviceHandlers) ReportSensorData(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var report farmservice.SensorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.farmservice.IngestReading(r.Context(), &report)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// @Summary Poll for a pending command
// @Description Return the newest pending command for the farm, or null
// @Tags device
// @Produce json
// @Param farm_id query string true "Farm ID"
// @Param device_key query string true "Device key"
// @Success 200 {object} models.DeviceCommand
// @Failure 403 {object} errors.APIError
// @Router /device/commands/poll [get]
func (h *DeviceHandlers) PollCommands(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var query PollQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	cmd, err := h.farmservice.PollCommand(r.Context(), query.FarmID, query.DeviceKey)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	// An empty queue is a normal answer, not an error
	respondWithJSON(w, http.StatusOK, cmd)
}

// @Summary Acknowledge a command
// @Description Mark a pending command as done (default) or failed
// @Tags device
// @Accept json
// @Produce json
// @Param ack body AckRequest true "Acknowledgement"
// @Success 200 {object} models.DeviceCommand
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /device/commands/ack [post]
func (h *DeviceHandlers) AcknowledgeCommand(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var ack AckRequest
	if err := json.NewDecoder(r.Body).Decode(&ack); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if ack.CommandID == "" {
		respondWithError(w, errors.NewValidationError("command_id is required", nil).WithRequestID(requestID))
		return
	}

	cmd, err := h.farmservice.AcknowledgeCommand(r.Context(), ack.FarmID, ack.DeviceKey,
		ack.CommandID, ack.Status, ack.ActualDurationSec)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cmd)
}

// @Summary Report device status
// @Description Store the device's heartbeat (network, firmware, actuator state, sensor health)
// @Tags device
// @Accept json
// @Produce json
// @Param status body farmservice.StatusReport true "Device heartbeat"
// @Success 200 {object} models.DeviceStatus
// @Failure 400 {object} errors.APIError
// @Failure 403 {object} errors.APIError
// @Router /device/status [post]
func (h *DeviceHandlers) ReportDeviceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var report farmservice.StatusReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	status, err := h.farmservice.ReportDeviceStatus(r.Context(), &report)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// @Summary List device status
// @Description Get the farm's device heartbeats, most recently seen first
// @Tags device
// @Produce json
// @Param farmID path string true "Farm ID"
// @Success 200 {array} models.DeviceStatus
// @Router /farms/{farmID}/device-status [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDeviceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	statuses, err := h.farmservice.ListDeviceStatus(r.Context(), mux.Vars(r)["farmID"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, statuses)
}

// Helper functions

func getLimitParam(r *http.Request, fallback int) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		return fallback
	}
	return limit
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

// respondWithServiceError keeps the service layer's error classification
// (validation, auth, not found) intact on the wire
func respondWithServiceError(w http.ResponseWriter, requestID string, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	respondWithError(w, errors.NewInternalError("unexpected error", err).WithRequestID(requestID))
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
