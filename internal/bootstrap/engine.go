package bootstrap

import (
	"context"
	"fmt"

	"ba-assistant-be/internal/config"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/pkg/mailer"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/memory"
	"ba-assistant-be/internal/repository/sqlite"
	"ba-assistant-be/internal/repository/unitofwork"
	"ba-assistant-be/internal/service"
	"ba-assistant-be/pkg/ai/router"
	"ba-assistant-be/pkg/database"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/dialogue/prompt"
	"ba-assistant-be/pkg/dialogue/state"
	"ba-assistant-be/pkg/events"
	"ba-assistant-be/pkg/llm"
	"ba-assistant-be/pkg/llm/factory"
	"ba-assistant-be/pkg/render"
	"ba-assistant-be/pkg/wiki/confluence"

	pktNats "ba-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const bootstrapModule = "BOOTSTRAP"

// Engine is the transport independent core shared by the server and the
// console
type Engine struct {
	Assistant service.IAssistantService
	Library   *render.Library
	LogStore  contract.SessionLogStore
	Logger    logger.ILogger

	// Consumer drains the async wiki queue; nil unless publishing is async
	Consumer service.IConsumerService
	// Events is the NATS publisher; nil when NATS is not configured
	Events *pktNats.Publisher

	Provider string
	Models   llm.Models
	Wiki     bool

	closers []func() error
}

// EngineOption tweaks the engine build
type EngineOption func(*engineOptions)

type engineOptions struct {
	withEvents bool
}

// WithoutEvents skips the NATS publisher, for the console
func WithoutEvents() EngineOption {
	return func(o *engineOptions) { o.withEvents = false }
}

// NewEngine builds the synthesis engine from configuration. Optional
// collaborators that fail to connect are logged and left out.
func NewEngine(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger, opts ...EngineOption) (*Engine, error) {
	o := engineOptions{withEvents: true}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{Logger: sysLogger, Provider: cfg.LLM.Provider}
	e.Models = llm.Models{Assistant: cfg.LLM.AssistantModel, Router: cfg.LLM.RouterModel}

	// 1. Text generator
	provider, err := factory.NewChain(ctx, e.settings(cfg, cfg.LLM.Provider), e.fallbackSettings(cfg), func(name string, err error) {
		sysLogger.Warn(bootstrapModule, "LLM provider failed", map[string]interface{}{"provider": name, "error": err.Error()})
	})
	if err != nil {
		return nil, fmt.Errorf("configure llm provider: %w", err)
	}
	sysLogger.Info(bootstrapModule, "Using LLM provider", map[string]interface{}{
		"provider": provider.Name(), "assistant_model": e.Models.Assistant, "router_model": e.Models.Router,
	})

	// 2. Templates and renderer
	templates, err := prompt.LoadTemplateSet(cfg.Engine.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("configure templates: %w", err)
	}
	format, err := render.ParseFormat(cfg.Render.Format)
	if err != nil {
		return nil, fmt.Errorf("configure render format: %w", err)
	}
	renderer := render.NewFileRenderer(cfg.Render.OutputDir, format)
	e.Library = render.NewLibrary(cfg.Render.OutputDir)

	// 3. Session log store
	e.LogStore = e.openLogStore(cfg)

	// 4. Events
	var eventPub events.Publisher
	if o.withEvents && cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn(bootstrapModule, "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			e.Events = natsPub
			eventPub = natsPub
			e.closers = append(e.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 5. Wiki publisher
	var publisher state.Publisher
	if cfg.Confluence.Enabled() {
		e.Wiki = true
		client := confluence.NewClient(cfg.Confluence.URL, cfg.Confluence.Username, cfg.Confluence.APIToken, cfg.Confluence.SpaceKey)
		if err := client.Ping(ctx); err != nil {
			sysLogger.Warn(bootstrapModule, "Confluence space not reachable", map[string]interface{}{
				"space": client.SpaceKey(), "error": err.Error(),
			})
		}

		worker := service.NewWikiPublishService(client, nil, cfg.Confluence.ParentID, sysLogger)
		publisher = worker
		if cfg.Confluence.Async {
			pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
			publisher = service.NewWikiPublishService(client, pubSub, cfg.Confluence.ParentID, sysLogger)
			e.Consumer = service.NewConsumerService(pubSub, service.PublishTopic, worker, e.LogStore, eventPub, sysLogger)
			e.closers = append(e.closers, pubSub.Close)
		}
	}

	// 6. Notifications
	var notifier mailer.IEmailService
	if cfg.SMTP.Enabled() {
		notifier = mailer.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password, cfg.SMTP.SenderName, cfg.SMTP.NotifyTo)
	}

	// 7. Engine
	machine := state.NewMachine(
		router.NewRouter(provider, sysLogger),
		provider,
		templates,
		completion.NewMarkerDetector(),
		renderer,
		publisher,
		sysLogger,
	).WithPublishTimeout(cfg.Engine.PublishTimeout)
	e.Assistant = service.NewAssistantService(
		memory.NewSessionRegistry(),
		machine,
		e.LogStore,
		eventPub,
		notifier,
		sysLogger,
		cfg.Engine,
	)

	return e, nil
}

func (e *Engine) settings(cfg *config.Config, provider string) factory.Settings {
	return factory.Settings{
		Provider:      provider,
		Models:        e.Models,
		APIKey:        cfg.LLM.APIKey(provider),
		BaseURL:       cfg.LLM.BaseURL,
		OllamaBaseURL: cfg.LLM.OllamaBaseURL,
	}
}

func (e *Engine) fallbackSettings(cfg *config.Config) *factory.Settings {
	if cfg.LLM.FallbackProvider == "" {
		return nil
	}
	s := e.settings(cfg, cfg.LLM.FallbackProvider)
	return &s
}

// openLogStore returns nil when logging is off or the backend is unreachable
func (e *Engine) openLogStore(cfg *config.Config) contract.SessionLogStore {
	switch cfg.Database.LogStore {
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			e.Logger.Warn(bootstrapModule, "Session log store unavailable", map[string]interface{}{"driver": "postgres", "error": err.Error()})
			return nil
		}
		store := service.NewSessionLogService(unitofwork.NewRepositoryFactory(db), func() error { return database.Close(db) })
		e.closers = append(e.closers, store.Close)
		return store
	case "sqlite":
		store, err := sqlite.NewLogStore(cfg.Database.SQLitePath)
		if err != nil {
			e.Logger.Warn(bootstrapModule, "Session log store unavailable", map[string]interface{}{"driver": "sqlite", "error": err.Error()})
			return nil
		}
		e.closers = append(e.closers, store.Close)
		return store
	default:
		e.Logger.Info(bootstrapModule, "Session logging disabled", map[string]interface{}{"log_store": cfg.Database.LogStore})
		return nil
	}
}

// LogStoreName is the active backend, or "none"
func (e *Engine) LogStoreName(cfg *config.Config) string {
	if e.LogStore == nil {
		return "none"
	}
	return cfg.Database.LogStore
}

// Close waits for background deliveries and releases connections
func (e *Engine) Close() {
	e.Assistant.Close()
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.Logger.Warn(bootstrapModule, "Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	e.Logger.Sync()
}
