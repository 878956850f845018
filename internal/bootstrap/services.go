package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/adapters/llm"
	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/service"
)

// ServiceContainer holds the constructed services and the repos the HTTP
// layer reads from directly.
type ServiceContainer struct {
	Scheduler  *service.SchedulerService
	Executor   *service.ExecutorService
	Dispatcher *service.DispatcherService
	Context    *service.ContextService
	Proposer   *service.ProposerService

	Jobs *data.AgentJobRepo
	Runs *data.JobRunRepo
}

// ServicesConfig contains dependencies for building the service container.
type ServicesConfig struct {
	DB     *sql.DB
	Redis  redis.UniversalClient
	Config *config.AppConfig
	Logger *slog.Logger
}

// BuildServices constructs the full service graph from storage and config.
func BuildServices(cfg ServicesConfig) *ServiceContainer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobs := data.NewAgentJobRepo(cfg.DB)
	runs := data.NewJobRunRepo(cfg.DB)
	tasks := data.NewTaskRepo(cfg.DB)
	contacts := data.NewContactRepo(cfg.DB)
	pipeline := data.NewPipelineRepo(cfg.DB)
	notifications := data.NewNotificationRepo(cfg.DB)
	content := data.NewContentRepo(cfg.DB)
	audit := data.NewAuditRepo(cfg.DB)
	cache := data.NewContextCacheRepo(cfg.Redis, cfg.Config.Cache.ContextTTL)

	dispatcher := service.NewDispatcherService(service.DispatcherServiceOptions{
		Tasks:         tasks,
		Contacts:      contacts,
		Pipeline:      pipeline,
		Notifications: notifications,
		Content:       content,
		Audit:         audit,
		Config:        &cfg.Config.Agent,
		Logger:        logger,
	})

	aggregator := service.NewContextService(service.ContextServiceOptions{
		Tasks:    tasks,
		Contacts: contacts,
		Pipeline: pipeline,
		Cache:    cache,
		Config:   &cfg.Config.Agent,
		Logger:   logger,
	})

	completer := llm.NewClient(llm.ClientOptions{
		APIBase: cfg.Config.Agent.APIBase,
		APIKey:  cfg.Config.Agent.APIKey,
		Model:   cfg.Config.Agent.Model,
		Timeout: cfg.Config.Agent.RequestTimeout,
	})
	proposer := service.NewProposerService(service.ProposerServiceOptions{
		Completer: completer,
		Logger:    logger,
	})

	executor := service.NewExecutorService(service.ExecutorServiceOptions{
		Runs:       runs,
		Tasks:      tasks,
		Contacts:   contacts,
		Pipeline:   pipeline,
		Aggregator: aggregator,
		Proposer:   proposer,
		Dispatcher: dispatcher,
		Config:     &cfg.Config.Agent,
		Logger:     logger,
	})

	scheduler := service.NewSchedulerService(service.SchedulerServiceOptions{
		Jobs:     jobs,
		Executor: executor,
		Config:   &cfg.Config.Scheduler,
		Logger:   logger,
	})

	return &ServiceContainer{
		Scheduler:  scheduler,
		Executor:   executor,
		Dispatcher: dispatcher,
		Context:    aggregator,
		Proposer:   proposer,
		Jobs:       jobs,
		Runs:       runs,
	}
}
