// FilePath: api/resources/api.resource.notifications.go
package resources

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasetlab/farmhub/internal/farmservice"
	nuts "github.com/vaudience/go-nuts"
)

// NotificationHandlers encapsulates the notification feed HTTP handlers
type NotificationHandlers struct {
	farmservice *farmservice.FarmService
}

// @Summary List notifications
// @Description Get the farm's newest notifications
// @Tags notifications
// @Produce json
// @Param farmID path string true "Farm ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.Notification
// @Router /farms/{farmID}/notifications [get]
// @Security BearerAuth
func (h *NotificationHandlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	list, err := h.farmservice.ListNotifications(r.Context(), mux.Vars(r)["farmID"], getLimitParam(r, 50))
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// @Summary Mark a notification read
// @Tags notifications
// @Param farmID path string true "Farm ID"
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Router /farms/{farmID}/notifications/{id}/read [post]
// @Security BearerAuth
func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	vars := mux.Vars(r)

	if err := h.farmservice.MarkNotificationRead(r.Context(), vars["farmID"], vars["id"]); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
