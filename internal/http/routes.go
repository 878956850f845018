package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Scheduler  SchedulerRunner
	Dispatcher ActionDispatcher
	Jobs       JobDirectory
	Runs       RunLister

	// SchedulerSecret, when non-empty, is required as a bearer token on the
	// scheduler trigger routes.
	SchedulerSecret string
	Logger          *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	handlers := &AgentHandlers{
		Scheduler:  services.Scheduler,
		Dispatcher: services.Dispatcher,
		Jobs:       services.Jobs,
		Runs:       services.Runs,
		Logger:     logger,
	}

	guard := RequireSharedSecret(services.SchedulerSecret)
	mux.Handle("POST /api/agent/scheduler/run", guard(http.HandlerFunc(handlers.RunScheduler)))
	// GET kept for manual and cron-trigger invocations.
	mux.Handle("GET /api/agent/scheduler/run", guard(http.HandlerFunc(handlers.RunScheduler)))

	mux.Handle("POST /api/agent/actions", http.HandlerFunc(handlers.SubmitActions))
	mux.Handle("GET /api/agent/jobs", http.HandlerFunc(handlers.ListJobs))
	mux.Handle("POST /api/agent/jobs", http.HandlerFunc(handlers.CreateJob))
	mux.Handle("PATCH /api/agent/jobs/{id}/active", http.HandlerFunc(handlers.SetJobActive))
	mux.Handle("GET /api/agent/runs", http.HandlerFunc(handlers.ListRuns))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}
