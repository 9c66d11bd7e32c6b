// FilePath: api/resources/api.resource.rules.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/farmservice"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// RuleHandlers encapsulates the alert rule HTTP handlers
type RuleHandlers struct {
	farmservice *farmservice.FarmService
}

// @Summary Create an alert rule
// @Tags rules
// @Accept json
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param rule body models.AlertRule true "Rule details"
// @Success 201 {object} models.AlertRule
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/rules [post]
// @Security BearerAuth
func (h *RuleHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var rule models.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	rule.FarmID = mux.Vars(r)["farmID"]

	if err := h.farmservice.CreateAlertRule(r.Context(), &rule); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, rule)
}

// @Summary List alert rules
// @Tags rules
// @Produce json
// @Param farmID path string true "Farm ID"
// @Success 200 {array} models.AlertRule
// @Router /farms/{farmID}/rules [get]
// @Security BearerAuth
func (h *RuleHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	rules, err := h.farmservice.ListAlertRules(r.Context(), mux.Vars(r)["farmID"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rules)
}

// @Summary Get an alert rule
// @Tags rules
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param id path string true "Rule ID"
// @Success 200 {object} models.AlertRule
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/rules/{id} [get]
// @Security BearerAuth
func (h *RuleHandlers) GetRule(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	rule, err := h.farmservice.GetAlertRule(r.Context(), vars["farmID"], vars["id"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rule)
}

// @Summary Update an alert rule
// @Tags rules
// @Accept json
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param id path string true "Rule ID"
// @Param rule body models.AlertRule true "Rule details"
// @Success 200 {object} models.AlertRule
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/rules/{id} [put]
// @Security BearerAuth
func (h *RuleHandlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	var rule models.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	rule.FarmID = vars["farmID"]
	rule.ID = vars["id"]

	if err := h.farmservice.UpdateAlertRule(r.Context(), &rule); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rule)
}

// @Summary Delete an alert rule
// @Tags rules
// @Param farmID path string true "Farm ID"
// @Param id path string true "Rule ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/rules/{id} [delete]
// @Security BearerAuth
func (h *RuleHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	if err := h.farmservice.DeleteAlertRule(r.Context(), vars["farmID"], vars["id"]); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
