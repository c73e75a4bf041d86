package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/driftblend/api/internal/config"
	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/handler"
	"github.com/driftblend/api/internal/middleware"
	"github.com/driftblend/api/internal/service"
	"github.com/driftblend/api/internal/spotify"
	"github.com/driftblend/api/internal/store"
	ws "github.com/driftblend/api/internal/websocket"
	"github.com/driftblend/api/internal/worker"
)

func main() {
	logg := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "driftblend",
	})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("failed to load config", "err", err)
	}
	if cfg.Server.Env == "development" {
		logg.SetLevel(log.DebugLevel)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logg.Warn("redis not available", "err", err)
	}

	// Initialize Asynq client and inspector
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(logg.WithPrefix("ws"))
	go hub.Run()

	// Streaming sessions and per-user state
	creds := spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	}
	sessions := spotify.NewCache(func(ctx context.Context, userID, username string) (*spotify.Client, error) {
		return spotify.NewClient(ctx, creds, redisClient, userID, username, logg.WithPrefix("spotify"))
	})
	defer sessions.CloseAll()
	users := store.NewUserStore(redisClient)

	// Dispatcher and workers
	dispatcher := dispatch.New(asynqClient, inspector, redisClient, logg.WithPrefix("dispatch"))
	dispatcher.SetNotifier(hub)

	playerWorker := worker.NewPlayerWorker(sessions, users, dispatcher, cfg.Playback, logg.WithPrefix("play"))
	fadeWorker := worker.NewFadeWorker(sessions, cfg.Playback, logg.WithPrefix("fade"))
	blendWorker := worker.NewBlendWorker(sessions, users, dispatcher, logg.WithPrefix("blend"))
	radioWorker := worker.NewRadioWorker(sessions, users, cfg.Playback, logg.WithPrefix("radio"))

	dispatcher.Register(dispatch.TaskTypePlay, dispatch.Options{
		Unique: true,
	}, playerWorker.ProcessTask)
	dispatcher.Register(dispatch.TaskTypeFade, dispatch.Options{
		Unique:      true,
		ExpireAfter: 60 * time.Second,
		Timeout:     2500 * time.Second,
	}, fadeWorker.ProcessTask)
	dispatcher.Register(dispatch.TaskTypeBlend, dispatch.Options{
		Unique:      true,
		ExpireAfter: 60 * time.Second,
	}, blendWorker.ProcessTask)
	dispatcher.Register(dispatch.TaskTypeRadio, dispatch.Options{
		Unique:      true,
		ExpireAfter: 20 * time.Second,
	}, radioWorker.ProcessTask)

	// Initialize services
	playerService := service.NewPlayerService(dispatcher)
	fadeService := service.NewFadeService(dispatcher)
	blendService := service.NewBlendService(dispatcher)
	radioService := service.NewRadioService(dispatcher)
	playbackService := service.NewPlaybackService(sessions, cfg.Playback)

	// Initialize handlers
	playerHandler := handler.NewPlayerHandler(playerService, validate)
	fadeHandler := handler.NewFadeHandler(fadeService, validate)
	blendHandler := handler.NewBlendHandler(blendService, validate)
	radioHandler := handler.NewRadioHandler(radioService, validate)
	playbackHandler := handler.NewPlaybackHandler(playbackService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/playback", playbackHandler.Snapshot)
	api.Post("/play", rateLimiter.Limit("play", cfg.RateLimit.PlayPerMin), playerHandler.Play)
	api.Post("/fade", rateLimiter.Limit("fade", cfg.RateLimit.FadePerMin), fadeHandler.Fade)
	api.Post("/pause", rateLimiter.Limit("control", cfg.RateLimit.ControlPerMin), playbackHandler.Pause)
	api.Post("/next", rateLimiter.Limit("control", cfg.RateLimit.ControlPerMin), playbackHandler.Next)
	api.Post("/previous", rateLimiter.Limit("control", cfg.RateLimit.ControlPerMin), playbackHandler.Previous)
	api.Post("/blend", rateLimiter.Limit("blend", cfg.RateLimit.BlendPerMin), blendHandler.Blend)
	api.Post("/radio", rateLimiter.Limit("radio", cfg.RateLimit.RadioPerMin), radioHandler.Radio)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(redisOpt, dispatcher, logg.WithPrefix("worker"))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logg.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logg.Error("server shutdown error", "err", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	logg.Info("server starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		logg.Fatal("server error", "err", err)
	}
}

func startWorkerServer(redisOpt asynq.RedisClientOpt, dispatcher *dispatch.Dispatcher, logg *log.Logger) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				dispatch.QueuePlayback: 10,
			},
		},
	)

	if err := srv.Run(dispatcher.Mux()); err != nil {
		logg.Error("asynq worker error", "err", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
