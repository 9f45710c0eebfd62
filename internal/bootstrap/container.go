package bootstrap

import (
	"context"
	"fmt"
	"io"

	"market-insight-be/internal/config"
	"market-insight-be/internal/controller"
	"market-insight-be/internal/handler"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/internal/repository/contract"
	"market-insight-be/internal/repository/implementation"
	"market-insight-be/internal/repository/memory"
	"market-insight-be/internal/service"
	"market-insight-be/internal/websocket"
	"market-insight-be/pkg/analysis"
	"market-insight-be/pkg/database"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/llm/factory"
	"market-insight-be/pkg/strategy"
	"market-insight-be/pkg/strategy/source"

	pktNats "market-insight-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	StrategyController  controller.IStrategyController
	NoticeStreamHandler *handler.NoticeStreamHandler

	// Background Services (Exposed for main.go to run)
	NoticeService   service.INoticeService
	StrategyService service.IStrategyService

	Logger logger.ILogger

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	noticeLogger := logger.NewIsolatedLogger(cfg.App.NoticeLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub)

	var external service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			external = natsPub
			c.closers = append(c.closers, closerFunc(func() error { natsPub.Close(); return nil }))
		}
	}

	// 3. Infrastructure
	cacheRepo, closer, err := NewLocalCacheRepository(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("BOOTSTRAP", "Strategy generator configured", map[string]interface{}{
		"provider": cfg.Generator.Provider,
		"cache":    cfg.Cache.Backend,
	})

	store := draftstore.NewClient(cfg.Store.BaseURL, cfg.Store.Timeout)
	workspaces := memory.NewWorkspaceRepository(cfg.App.WorkspaceTTL)
	batches := source.NewGeneratedBatch(generator, strategy.NewFallbackGenerator(), cfg.Generator.Timeout, sysLogger)

	// WebSocket Hub
	var hubRedis *redis.Client
	if cfg.App.NoticeFanout {
		hubRedis = newRedisClient(cfg.App.RedisURL, sysLogger)
		c.closers = append(c.closers, hubRedis)
	}
	wsHub := websocket.NewHub(hubRedis, noticeLogger)
	go wsHub.Run()
	c.closers = append(c.closers, wsHub)

	// 4. Services
	publisherService := service.NewPublisherService(cfg.App.EventTopic, pubSub, external, sysLogger)
	noticeService := service.NewNoticeService(pubSub, cfg.App.EventTopic, cfg.App.NoticeTTL, wsHub, noticeLogger)
	strategyService := service.NewStrategyService(store, cacheRepo, workspaces, batches, publisherService, sysLogger)

	// 5. Controllers
	c.StrategyController = controller.NewStrategyController(strategyService, noticeService)
	c.NoticeStreamHandler = handler.NewNoticeStreamHandler(wsHub, noticeLogger)
	c.NoticeService = noticeService
	c.StrategyService = strategyService
	return c, nil
}

// NewLocalCacheRepository opens the slot backend named by CACHE_BACKEND.
// The closer is nil when there is nothing to release.
func NewLocalCacheRepository(cfg *config.Config, log logger.ILogger) (contract.LocalCacheRepository, io.Closer, error) {
	switch cfg.Cache.Backend {
	case "redis":
		rdb := newRedisClient(cfg.App.RedisURL, log)
		return implementation.NewRedisLocalCacheRepository(rdb), rdb, nil
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, nil, fmt.Errorf("connect local cache database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return implementation.NewGormLocalCacheRepository(db), sqlDB, nil
	case "memory", "":
		return memory.NewLocalCacheRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported CACHE_BACKEND: %s", cfg.Cache.Backend)
	}
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}

func newGenerator(cfg *config.Config) (strategy.Generator, error) {
	switch cfg.Generator.Provider {
	case "api", "":
		return analysis.NewAPIGenerator(cfg.Generator.APIURL), nil
	case "ollama", "llm":
		provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize LLM provider: %w", err)
		}
		return analysis.NewLLMGenerator(provider), nil
	default:
		return nil, fmt.Errorf("unsupported GENERATOR_PROVIDER: %s", cfg.Generator.Provider)
	}
}
