package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services behind the REST API. Schedule may be nil.
type Dependencies struct {
	Awards       AwardQueries
	Preview      Previewer
	Games        GameQueries
	Stats        StatsCommands
	Players      PlayerQueries
	Jobs         JobQueue
	Schedule     ScheduleControl
	HealthChecks map[string]HealthChecker
}

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(port string, deps Dependencies, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	handler := NewHandler(deps)

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: NewRouter(handler, NewJobHandler(deps.Jobs, deps.Schedule), logger.WithField("component", "rest")),
		},
	}
}

// NewRouter registers every route with its middleware
func NewRouter(handler *Handler, jobHandler *JobHandler, logger logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Awards
	api.HandleFunc("/awards/types", handler.GetAwardTypes).Methods("GET")
	api.HandleFunc("/awards/preview", handler.PreviewAwards).Methods("GET")
	api.HandleFunc("/awards", handler.GetAwards).Methods("GET")
	api.HandleFunc("/seasons/{season}/finalize", handler.FinalizeSeason).Methods("POST")

	// Recalculation jobs
	api.HandleFunc("/awards/jobs", jobHandler.HandleJobRequest).Methods("POST")
	api.HandleFunc("/awards/jobs/status", jobHandler.HandleJobStatus).Methods("GET")
	api.HandleFunc("/awards/jobs/{jobID}", jobHandler.HandleGetJob).Methods("GET")
	api.HandleFunc("/awards/schedule", jobHandler.HandleSchedule).Methods("GET")
	api.HandleFunc("/awards/schedule/trigger", jobHandler.HandleTriggerSchedule).Methods("POST")

	// Games
	api.HandleFunc("/games", handler.GetSeasonGames).Methods("GET")
	api.HandleFunc("/games", handler.ImportBoxScore).Methods("POST")
	api.HandleFunc("/games/{gameID}", handler.GetGame).Methods("GET")
	api.HandleFunc("/games/{gameID}/boxscore", handler.GetGameBoxScore).Methods("GET")
	api.HandleFunc("/games/{gameID}/players/{playerID}", handler.GetPlayerGameStats).Methods("GET")

	// Players
	api.HandleFunc("/players/search", handler.SearchPlayers).Methods("GET")
	api.HandleFunc("/players/{playerID}", handler.GetPlayer).Methods("GET")
	api.HandleFunc("/players/{playerID}/awards", handler.GetPlayerAwards).Methods("GET")

	return router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
