package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/api/handlers"
	rediscache "github.com/intentbot/backend/internal/cache/redis"
	"github.com/intentbot/backend/internal/contextstore"
	"github.com/intentbot/backend/internal/embedding"
	"github.com/intentbot/backend/internal/matcher"
	"github.com/intentbot/backend/internal/metrics"
	"github.com/intentbot/backend/internal/middleware/ratelimit"
	"github.com/intentbot/backend/internal/middleware/security"
	"github.com/intentbot/backend/internal/middleware/validation"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/pipeline"
	"github.com/intentbot/backend/internal/resolver"
	"github.com/intentbot/backend/internal/response"
	"github.com/intentbot/backend/internal/storage/sqlite"
	"github.com/intentbot/backend/internal/training"
	"github.com/intentbot/backend/internal/vector/milvus"
	"github.com/intentbot/backend/pkg/config"
	appLogger "github.com/intentbot/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting intent resolution API server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cache *rediscache.Client
	if cfg.Redis.Host != "" {
		cache, err = rediscache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// The semantic backend is optional end to end: without an API key
	// the snapshot builder falls back to the TF-IDF matcher, and
	// without trained artifacts to the lexical one.
	var embedder matcher.Embedder
	var index *milvus.Index
	if cfg.Embeddings.APIKey != "" {
		embedder = embedding.NewClient(
			cfg.Embeddings.APIKey,
			cfg.Embeddings.Model,
			cfg.Embeddings.TimeoutSec,
			cache,
		)

		if cfg.Milvus.Endpoint != "" {
			index, err = milvus.NewIndex(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName, cfg.Embeddings.Dim)
			if err != nil {
				appLogger.Warn("Milvus unavailable, using in-memory pattern scan", zap.Error(err))
				index = nil
			} else {
				defer index.Close()
			}
		}
	}

	norm := nlp.NewNormalizer()
	buildCfg := resolver.BuildConfig{
		Norm:              norm,
		CorpusStore:       sqliteClient,
		CorpusFallback:    cfg.Corpus.FallbackPath,
		ModelDir:          cfg.Model.Dir,
		Embedder:          embedder,
		Index:             index,
		SemanticThreshold: cfg.Resolver.SemanticThreshold,
		LexicalOverlap:    cfg.Resolver.LexicalOverlap,
	}

	snapshot, err := resolver.BuildSnapshot(context.Background(), buildCfg)
	if err != nil {
		appLogger.Fatal("Failed to build initial snapshot", zap.Error(err))
	}
	metrics.CorpusIntents.Set(float64(snapshot.Corpus.Len()))

	res := resolver.New(norm, resolver.Thresholds{
		Accept:  cfg.Resolver.AcceptThreshold,
		Unknown: cfg.Resolver.UnknownFloor,
	}, snapshot)

	var cacheIface pipeline.ResolutionCache
	if cache != nil {
		cacheIface = cache
	}
	pipe := pipeline.New(pipeline.Config{
		Norm:     norm,
		Resolver: res,
		Contexts: contextstore.New(cfg.Context.MaxEntries),
		Selector: response.NewSelector(cfg.Responder.DefaultResponse),
		Store:    sqliteClient,
		Cache:    cacheIface,
		Rebuild: func(ctx context.Context) (*resolver.Snapshot, error) {
			return resolver.BuildSnapshot(ctx, buildCfg)
		},
	})

	trainer := training.NewTrainer(norm, cfg.Model.MaxFeatures, cfg.Model.Dir)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(pipe, sqliteClient)
	adminHandler := handlers.NewAdminHandler(sqliteClient, trainer, pipe, cfg.Corpus.FallbackPath)
	wsHandler := handlers.NewWebSocketHandler(pipe)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)

	admin := api.Group("/admin")
	admin.Get("/intents", adminHandler.ListIntents)
	admin.Post("/intents", adminHandler.CreateIntent)
	admin.Get("/intents/:tag", adminHandler.GetIntent)
	admin.Put("/intents/:tag", adminHandler.UpdateIntent)
	admin.Delete("/intents/:tag", adminHandler.DeleteIntent)
	admin.Post("/retrain", adminHandler.Retrain)
	admin.Post("/reload", adminHandler.Reload)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ready",
			"intents": res.Current().Corpus.Len(),
			"matcher": res.Current().Matcher.Kind(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
