package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/streadway/amqp"

	"vardhanvasista/fresalyzer/internal/config"
	"vardhanvasista/fresalyzer/internal/handlers"
	"vardhanvasista/fresalyzer/internal/repositories"
	"vardhanvasista/fresalyzer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	ctx := context.Background()

	// Initialize repositories
	var (
		uploadRepo repositories.UploadRepository
		runRepo    repositories.RunRepository
	)
	if cfg.UsePostgres() {
		db, err := config.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
		uploadRepo = repositories.NewUploadRepository(db)
		runRepo = repositories.NewRunRepository(db)
	} else {
		uploadRepo = repositories.NewMemoryUploadRepository()
		runRepo = repositories.NewMemoryRunRepository()
		log.Println("⚠️  DB_DRIVER is memory, runs are lost on restart")
	}
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	extractor := services.NewTextExtractor()
	log.Println("✅ Services initialized successfully")

	geminiService := services.NewGeminiService(
		cfg.Gemini.DefaultModel,
		cfg.Gemini.Temperature,
		cfg.Gemini.MaxOutputTokens,
	)
	log.Println("✅ Gemini client initialized successfully")

	// Progress goes to the log, and to RabbitMQ when configured
	progress := services.NewLogProgress()
	var brokerConn *amqp.Connection
	if cfg.Broker.URL != "" {
		conn, err := amqp.Dial(cfg.Broker.URL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to RabbitMQ: %v", err)
		}
		brokerConn = conn

		broker, err := services.NewBrokerProgress(conn, cfg.Broker.Exchange)
		if err != nil {
			log.Fatalf("❌ Failed to initialize progress exchange: %v", err)
		}
		progress = services.NewMultiProgress(progress, broker)
		log.Printf("✅ Publishing progress to exchange %s\n", cfg.Broker.Exchange)
	}

	exportStore, err := newExportStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize export storage: %v", err)
	}

	orchestrator := services.NewOrchestrator(geminiService, services.NewSleeper(), progress, services.OrchestratorSettings{
		CandidateCooldown: cfg.Batch.CandidateCooldown,
		RecruiterCooldown: cfg.Batch.RecruiterCooldown,
		ModelCooldown:     cfg.Batch.ModelCooldown,
		DefaultModel:      cfg.Gemini.DefaultModel,
		Retry: services.RetryPolicy{
			MaxAttempts: cfg.Batch.RetryMaxAttempts,
			BaseDelay:   cfg.Batch.RetryBaseDelay,
			FinalDelay:  cfg.Batch.RetryFinalDelay,
		},
	})
	log.Println("✅ Orchestrator initialized")

	executor := services.NewRunExecutor(runRepo, uploadRepo, extractor, orchestrator)

	// Initialize worker
	worker := services.NewWorker(
		runRepo,
		executor,
		cfg.Worker.Concurrency,
		cfg.Worker.QueueSize,
	)
	worker.Start(ctx)

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(
		uploadRepo,
		storageService,
		cfg.Storage.MaxFileSize,
	)
	runHandler := handlers.NewRunHandler(
		runRepo,
		uploadRepo,
		worker,
		exportStore,
		cfg.Gemini.APIKey,
		cfg.Gemini.DefaultModel,
	)
	modelHandler := handlers.NewModelHandler()
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Fresalyzer API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 10,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Disposition, X-Export-Location",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Get("/models", modelHandler.HandleListModels)
	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/runs", runHandler.HandleCreateRun)
	api.Get("/runs/:id", runHandler.HandleGetRun)
	api.Get("/runs/:id/export", runHandler.HandleExport)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Fresalyzer API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/models",
				"POST /api/v1/upload",
				"POST /api/v1/runs",
				"GET /api/v1/runs/:id",
				"GET /api/v1/runs/:id/export?format=csv|xlsx&top=N",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if brokerConn != nil {
			brokerConn.Close()
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// newExportStore picks where exported shortlists are archived: a bucket when
// one is configured, then a local directory, else nowhere.
func newExportStore(ctx context.Context, cfg *config.Config) (services.ObjectStore, error) {
	switch {
	case cfg.Export.Bucket != "":
		store, err := services.NewS3ObjectStore(ctx, services.S3Settings{
			Bucket:    cfg.Export.Bucket,
			Region:    cfg.Export.Region,
			Endpoint:  cfg.Export.Endpoint,
			AccountID: cfg.Export.AccountID,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
			PathStyle: cfg.Export.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("✅ Archiving exports to bucket %s\n", cfg.Export.Bucket)
		return store, nil
	case cfg.Export.LocalDir != "":
		log.Printf("✅ Archiving exports to %s\n", cfg.Export.LocalDir)
		return services.NewLocalObjectStore(cfg.Export.LocalDir), nil
	}
	return nil, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
