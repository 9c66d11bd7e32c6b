// FilePath: api/resources/api.resource.cron.go
package resources

import (
	"net/http"

	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/scheduler"
	nuts "github.com/vaudience/go-nuts"
)

// CronHandlers exposes a manual trigger for the schedule ticker. The
// background worker normally covers this; the endpoint exists for external
// cron fallbacks and for operators poking at a stuck schedule.
type CronHandlers struct {
	ticker *scheduler.Ticker
}

// TickResult reports what a manual tick did
type TickResult struct {
	Fired int `json:"fired"`
}

// @Summary Run a schedule tick
// @Description Evaluate watering schedules for the current minute. Idempotent within the minute.
// @Tags cron
// @Produce json
// @Success 200 {object} TickResult
// @Router /cron/schedule [post]
// @Security BearerAuth
func (h *CronHandlers) RunScheduleTick(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	fired, err := h.ticker.RunTick(r.Context())
	if err != nil {
		respondWithError(w, errors.NewInternalError("schedule tick failed", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, TickResult{Fired: fired})
}
