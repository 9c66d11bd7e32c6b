// FilePath: api/resources/api.resource.commands.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/farmservice"
	nuts "github.com/vaudience/go-nuts"
)

// CommandHandlers encapsulates the dashboard-facing command queue handlers
type CommandHandlers struct {
	farmservice *farmservice.FarmService
}

// @Summary Enqueue a command
// @Description Create a pending actuation command for the farm's device
// @Tags commands
// @Accept json
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param command body farmservice.EnqueueRequest true "Command details"
// @Success 201 {object} models.DeviceCommand
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/commands [post]
// @Security BearerAuth
func (h *CommandHandlers) EnqueueCommand(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	farmID := mux.Vars(r)["farmID"]

	var req farmservice.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	cmd, err := h.farmservice.EnqueueCommand(r.Context(), farmID, &req)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, cmd)
}

// @Summary List commands
// @Description List the farm's newest commands
// @Tags commands
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.DeviceCommand
// @Router /farms/{farmID}/commands [get]
// @Security BearerAuth
func (h *CommandHandlers) ListCommands(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	farmID := mux.Vars(r)["farmID"]

	commands, err := h.farmservice.ListCommands(r.Context(), farmID, getLimitParam(r, 50))
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, commands)
}

// @Summary Get a command
// @Description Get one command by ID, scoped to the farm
// @Tags commands
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param id path string true "Command ID"
// @Success 200 {object} models.DeviceCommand
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/commands/{id} [get]
// @Security BearerAuth
func (h *CommandHandlers) GetCommand(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	cmd, err := h.farmservice.GetCommand(r.Context(), vars["farmID"], vars["id"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cmd)
}

// @Summary Cancel pending commands
// @Description Fail all pending commands and queue OFF commands to stop running actuators
// @Tags commands
// @Produce json
// @Param farmID path string true "Farm ID"
// @Success 200 {object} farmservice.CancelResult
// @Router /farms/{farmID}/commands/cancel [post]
// @Security BearerAuth
func (h *CommandHandlers) CancelAllCommands(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	farmID := mux.Vars(r)["farmID"]

	result, err := h.farmservice.CancelCommands(r.Context(), farmID, "")
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Cancel pending commands for one device
// @Description Fail pending commands for a single actuator and queue an OFF command for it
// @Tags commands
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param deviceID path string true "Device ID (pump or mist)"
// @Success 200 {object} farmservice.CancelResult
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/commands/cancel/{deviceID} [post]
// @Security BearerAuth
func (h *CommandHandlers) CancelDeviceCommands(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	result, err := h.farmservice.CancelCommands(r.Context(), vars["farmID"], vars["deviceID"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
