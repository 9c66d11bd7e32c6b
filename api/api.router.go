package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasetlab/farmhub/api/middleware"
	"github.com/kasetlab/farmhub/api/resources"
	"github.com/kasetlab/farmhub/internal/farmservice"
	"github.com/kasetlab/farmhub/internal/scheduler"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.TokenMiddleware
	resources *resources.Resources
}

func NewRouter(svc *farmservice.FarmService, ticker *scheduler.Ticker, tokenConfig middleware.TokenConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewTokenMiddleware(tokenConfig),
		resources: resources.NewResources(svc, ticker),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes. Health and metrics are wired late by the server, so
	// dereference at call time.
	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)
	api.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		r.resources.Metrics(w, req)
	}).Methods(http.MethodGet)

	// Device routes authenticate with per-farm device keys, not the token
	device := api.PathPrefix("/device").Subrouter()
	device.HandleFunc("/sensor", r.resources.Device.ReportSensorData).Methods(http.MethodPost)
	device.HandleFunc("/commands/poll", r.resources.Device.PollCommands).Methods(http.MethodGet)
	device.HandleFunc("/commands/ack", r.resources.Device.AcknowledgeCommand).Methods(http.MethodPost)
	device.HandleFunc("/status", r.resources.Device.ReportDeviceStatus).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	protected.HandleFunc("/cron/schedule", r.resources.Cron.RunScheduleTick).Methods(http.MethodPost)

	// Per-farm resources
	farms := protected.PathPrefix("/farms/{farmID}").Subrouter()

	farms.HandleFunc("/settings", r.resources.Settings.GetSettings).Methods(http.MethodGet)
	farms.HandleFunc("/settings", r.resources.Settings.UpdateSettings).Methods(http.MethodPatch)

	farms.HandleFunc("/commands", r.resources.Commands.ListCommands).Methods(http.MethodGet)
	farms.HandleFunc("/commands", r.resources.Commands.EnqueueCommand).Methods(http.MethodPost)
	farms.HandleFunc("/commands/cancel", r.resources.Commands.CancelAllCommands).Methods(http.MethodPost)
	farms.HandleFunc("/commands/cancel/{deviceID}", r.resources.Commands.CancelDeviceCommands).Methods(http.MethodPost)
	farms.HandleFunc("/commands/{id}", r.resources.Commands.GetCommand).Methods(http.MethodGet)

	farms.HandleFunc("/rules", r.resources.Rules.ListRules).Methods(http.MethodGet)
	farms.HandleFunc("/rules", r.resources.Rules.CreateRule).Methods(http.MethodPost)
	farms.HandleFunc("/rules/{id}", r.resources.Rules.GetRule).Methods(http.MethodGet)
	farms.HandleFunc("/rules/{id}", r.resources.Rules.UpdateRule).Methods(http.MethodPut)
	farms.HandleFunc("/rules/{id}", r.resources.Rules.DeleteRule).Methods(http.MethodDelete)

	farms.HandleFunc("/telemetry/latest", r.resources.Telemetry.GetLatest).Methods(http.MethodGet)
	farms.HandleFunc("/telemetry/readings", r.resources.Telemetry.GetReadings).Methods(http.MethodGet)
	farms.HandleFunc("/telemetry/indices", r.resources.Telemetry.GetIndices).Methods(http.MethodGet)

	farms.HandleFunc("/device-status", r.resources.Device.ListDeviceStatus).Methods(http.MethodGet)

	farms.HandleFunc("/notifications", r.resources.Notifications.ListNotifications).Methods(http.MethodGet)
	farms.HandleFunc("/notifications/{id}/read", r.resources.Notifications.MarkRead).Methods(http.MethodPost)
}

// SetHealthCheck wires the health check handler
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

// SetMetrics wires the metrics handler
func (r *Router) SetMetrics(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetMetrics(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
