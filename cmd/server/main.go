package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/teacherflow/api/internal/artifact"
	"github.com/teacherflow/api/internal/assembler"
	"github.com/teacherflow/api/internal/client"
	"github.com/teacherflow/api/internal/codegen"
	"github.com/teacherflow/api/internal/config"
	"github.com/teacherflow/api/internal/handler"
	"github.com/teacherflow/api/internal/middleware"
	"github.com/teacherflow/api/internal/pipeline"
	"github.com/teacherflow/api/internal/planner"
	"github.com/teacherflow/api/internal/renderer"
	"github.com/teacherflow/api/internal/service"
	"github.com/teacherflow/api/internal/speech"
	"github.com/teacherflow/api/internal/store"
	"github.com/teacherflow/api/internal/worker"
	"github.com/teacherflow/api/pkg/response"
)

func main() {
	// Load .env (local dev only)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Artifact directories
	artifacts := artifact.NewStore(cfg.Storage.VideosDir, cfg.Storage.AudioDir, cfg.Storage.DebugDir, cfg.Storage.DebugMode)
	if err := artifacts.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create artifact directories: %v", err)
	}
	if cfg.Storage.DebugMode {
		log.Println("Debug mode enabled: plans and code attempts will be archived")
	}

	// Redis is optional: without it jobs run on in-process goroutines
	// against an in-memory store.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisAvailable := true
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Redis not available (%v), using in-memory job store", err)
		redisAvailable = false
	}

	var jobStore store.JobStore
	var asynqClient *asynq.Client
	if redisAvailable {
		jobStore = store.NewRedisStore(redisClient)
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
	} else {
		jobStore = store.NewMemoryStore()
		redisClient = nil
	}

	// AI client and pipeline stages
	aiClient := client.NewOpenAIClient(&cfg.OpenAI)
	if !aiClient.IsConfigured() {
		log.Println("Warning: OPENAI_API_KEY not set, generation jobs will fail")
	}

	contentPlanner := planner.New(aiClient)
	synthesizer := speech.New(aiClient, cfg.Pipeline.SpeechRetries)
	codeGenerator := codegen.New(aiClient)
	sceneRenderer := renderer.New(codeGenerator, cfg.Pipeline.RendererBin, cfg.Pipeline.RendererQuality,
		cfg.Pipeline.RenderRetries, cfg.Pipeline.RenderConcurrency)
	videoAssembler := assembler.New()

	orchestrator := pipeline.New(jobStore, contentPlanner, synthesizer, codeGenerator,
		sceneRenderer, videoAssembler, artifacts,
		time.Duration(cfg.Pipeline.StepPauseMs)*time.Millisecond)

	// Service and handlers
	validate := validator.New()
	videoService := service.NewVideoService(jobStore, asynqClient, orchestrator, artifacts)
	videoHandler := handler.NewVideoHandler(videoService, validate)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,Range",
	}))

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "teacherflow-api",
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"services": fiber.Map{
				"openai": aiClient.IsConfigured(),
				"redis":  redisAvailable,
			},
		})
	})

	// Job API
	app.Post("/generate-video", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), videoHandler.Generate)
	app.Get("/job-status/:jobId", videoHandler.Status)

	// Video artifacts
	app.Get("/videos/:filename", videoHandler.Stream)
	app.Post("/delete/videos", authMiddleware.Authenticate(), videoHandler.Delete)
	app.Delete("/delete/videos", authMiddleware.Authenticate(), videoHandler.Delete)

	// Start Asynq worker server when queueing is available
	if redisAvailable {
		go startWorkerServer(cfg, orchestrator)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, orchestrator *pipeline.Orchestrator) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"video": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	videoWorker := worker.NewVideoWorker(orchestrator)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeVideo, videoWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(response.ErrorResponse{
		Error: response.ErrorDetail{
			Code:    response.CodeServiceError,
			Message: message,
		},
	})
}
