package bootstrap

import (
	"context"

	"ba-assistant-be/internal/config"
	"ba-assistant-be/internal/controller"
	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/service"
	"ba-assistant-be/internal/websocket"

	pktNats "ba-assistant-be/pkg/nats"

	"github.com/redis/go-redis/v9"
)

// ForwarderDurable is the shared NATS consumer that relays domain events to
// websocket peers. One instance receives each event; Redis fans it out.
const ForwarderDurable = "ws-forwarder"

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	AdminController    controller.IAdminController
	HealthController   controller.IHealthController

	// Core
	Engine *Engine

	// Background Services (Exposed for main.go to run)
	AssistantService service.IAssistantService
	ConsumerService  service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
	Logger       logger.ILogger

	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	engine, err := NewEngine(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Engine:           engine,
		AssistantService: engine.Assistant,
		ConsumerService:  engine.Consumer,
		Logger:           sysLogger,
	}

	// 2. Infrastructure
	// Redis
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn(bootstrapModule, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			sysLogger.Warn(bootstrapModule, "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
			rdb.Close()
		} else {
			c.rdb = rdb
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(c.rdb, wsLogger)
	engine.Assistant.KeepWhile(c.WebSocketHub.IsConnected)

	// NATS events to websocket peers
	if engine.Events != nil {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn(bootstrapModule, "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
		} else if err := natsSub.Subscribe(pktNats.SubjectPrefix+">", ForwarderDurable, c.WebSocketHub.ForwardEvent); err != nil {
			sysLogger.Warn(bootstrapModule, "Event forwarding disabled", map[string]interface{}{"error": err.Error()})
			natsSub.Close()
		} else {
			c.natsSub = natsSub
		}
	}

	// 3. Controllers
	c.ChatController = controller.NewChatController(engine.Assistant)
	c.DocumentController = controller.NewDocumentController(engine.Library)
	c.AdminController = controller.NewAdminController(engine.Assistant, sysLogger, cfg.App.JWTSecret)
	c.HealthController = controller.NewHealthController(engine.Assistant, dto.HealthResponse{
		Service:        cfg.App.Name,
		Provider:       engine.Provider,
		RouterModel:    engine.Models.Router,
		AssistantModel: engine.Models.Assistant,
		LogStore:       engine.LogStoreName(cfg),
		Wiki:           engine.Wiki,
	})

	return c, nil
}

// Close stops event forwarding and releases the engine
func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	c.Engine.Close()
	if c.rdb != nil {
		c.rdb.Close()
	}
}
