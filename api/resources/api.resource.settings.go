// FilePath: api/resources/api.resource.settings.go
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

// SettingsHandlers encapsulates the farm settings HTTP handlers
type SettingsHandlers struct {
	farmservice *farmservice.FarmService
}

// @Summary Get farm settings
// @Description Get the farm's settings with role-based field filtering
// @Tags settings
// @Produce json
// @Param farmID path string true "Farm ID"
// @Success 200 {object} models.FarmSetting
// @Router /farms/{farmID}/settings [get]
// @Security BearerAuth
func (h *SettingsHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	setting, err := h.farmservice.GetFarmSettings(r.Context(), mux.Vars(r)["farmID"])
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, setting)
}

// @Summary Update farm settings
// @Description Apply a partial settings update; omitted fields keep their stored value
// @Tags settings
// @Accept json
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param patch body models.FarmSettingPatch true "Settings patch"
// @Success 200 {object} models.FarmSetting
// @Failure 400 {object} errors.APIError
// @Router /farms/{farmID}/settings [patch]
// @Security BearerAuth
func (h *SettingsHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var patch models.FarmSettingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	setting, err := h.farmservice.UpdateFarmSettings(r.Context(), mux.Vars(r)["farmID"], &patch)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, setting)
}
