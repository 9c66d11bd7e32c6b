// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/kasetlab/farmhub/api"
	"github.com/kasetlab/farmhub/api/middleware"
	"github.com/kasetlab/farmhub/internal/cache"
	"github.com/kasetlab/farmhub/internal/config"
	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/farmservice"
	"github.com/kasetlab/farmhub/internal/monitoring"
	"github.com/kasetlab/farmhub/internal/notifier"
	"github.com/kasetlab/farmhub/internal/repository/postgres"
	"github.com/kasetlab/farmhub/internal/repository/timescale"
	"github.com/kasetlab/farmhub/internal/scheduler"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config      *config.Config
	srv         *http.Server
	farmservice *farmservice.FarmService
	monitoring  *monitoring.Service
	ticker      *scheduler.Ticker

	appDB         database.DB
	tsdb          database.DB
	settingsCache *cache.SettingsCache
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
	}
}

// Start wires the service graph, starts the schedule ticker and listens for
// requests until interrupted
func (s *Server) Start() error {
	s.monitoring = monitoring.NewService()
	s.initializeFarmService()
	s.setupCommandHandlers()

	var err error
	s.ticker, err = scheduler.New(s.farmservice.Settings, s.farmservice.Commands,
		s.monitoring, s.config.Scheduler, s.config.Watering)
	if err != nil {
		return err
	}
	s.ticker.Start()

	router := api.NewRouter(s.farmservice, s.ticker, middleware.TokenConfig{
		APIToken: s.config.Auth.APIToken,
	})
	router.SetHealthCheck(s.handleHealth())
	router.SetMetrics(s.handleMetrics())

	handler := handlers.RecoveryHandler()(
		handlers.CORS(
			handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(router))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	s.ticker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if s.settingsCache != nil {
		s.settingsCache.Close()
	}
	s.appDB.Close()
	s.tsdb.Close()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

// handleMetrics dumps the in-process event counters
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"version":  nuts.GetVersion(),
			"counters": s.monitoring.Counters(),
		})
	}
}

func (s *Server) setupCommandHandlers() {
	s.farmservice.OnCommand("command.created", func(id string) {
		nuts.L.Infof("[Server] Command %s queued for delivery", id)
	})
	s.farmservice.OnCommand("command.canceled", func(farmID string) {
		nuts.L.Infof("[Server] Pending commands for farm %s canceled", farmID)
	})
}

// initializeFarmService creates and configures the farm service
func (s *Server) initializeFarmService() {
	s.tsdb = initTimescaleDB(s.config.Database.TimescaleDB)
	s.appDB = initAppDB(s.config.Database.AppDB)

	settings, err := postgres.NewSettingsRepository(s.appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize settings repository: %v", err)
	}
	commands, err := postgres.NewCommandRepository(s.appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize command repository: %v", err)
	}
	rules, err := postgres.NewRuleRepository(s.appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize rule repository: %v", err)
	}
	notifications, err := postgres.NewNotificationRepository(s.appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize notification repository: %v", err)
	}
	readings, err := timescale.NewReadingRepository(s.tsdb)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize reading repository: %v", err)
	}
	statuses, err := postgres.NewDeviceStatusRepository(s.appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device status repository: %v", err)
	}

	s.settingsCache = cache.NewSettingsCache(s.config.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.settingsCache.Ping(ctx); err != nil {
		// The cache is an optimization; without Redis every settings lookup
		// goes to the database
		nuts.L.Warnf("[Server] Redis unavailable, running without settings cache: %v", err)
		s.settingsCache.Close()
		s.settingsCache = nil
	}

	sink := notifier.NewDiscordNotifier(s.config.Notifier.Timeout)

	var settingsCache farmservice.SettingsCache
	if s.settingsCache != nil {
		settingsCache = s.settingsCache
	}

	s.farmservice = farmservice.New(settings, commands, rules, notifications, readings,
		statuses, sink, settingsCache, s.monitoring, s.config.Alerting, s.config.Watering)
	if err := s.farmservice.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid service wiring: %v", err)
	}
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping AppDB: %v", err)
	}
	return wrappedDB
}
