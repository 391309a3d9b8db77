package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/decision"
	"github.com/andreypavlenko/jobber/internal/ingest"
	"github.com/andreypavlenko/jobber/internal/mailbox"
	"github.com/andreypavlenko/jobber/internal/mailer"
	"github.com/andreypavlenko/jobber/internal/oracle"
	"github.com/andreypavlenko/jobber/internal/oracle/usage"
	"github.com/andreypavlenko/jobber/internal/platform/auth"
	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/internal/platform/postgres"
	"github.com/andreypavlenko/jobber/internal/platform/queue"
	"github.com/andreypavlenko/jobber/internal/platform/redis"
	"github.com/andreypavlenko/jobber/internal/platform/storage"
	"github.com/andreypavlenko/jobber/internal/screening"
	"github.com/andreypavlenko/jobber/internal/store"

	authHandler "github.com/andreypavlenko/jobber/modules/auth/handler"
	authRepo "github.com/andreypavlenko/jobber/modules/auth/repository"
	authService "github.com/andreypavlenko/jobber/modules/auth/service"
	userRepo "github.com/andreypavlenko/jobber/modules/users/repository"

	appHandler "github.com/andreypavlenko/jobber/modules/applications/handler"
	appService "github.com/andreypavlenko/jobber/modules/applications/service"

	candidateHandler "github.com/andreypavlenko/jobber/modules/candidates/handler"
	candidateService "github.com/andreypavlenko/jobber/modules/candidates/service"

	dashboardHandler "github.com/andreypavlenko/jobber/modules/dashboard/handler"
	dashboardService "github.com/andreypavlenko/jobber/modules/dashboard/service"

	eventHandler "github.com/andreypavlenko/jobber/modules/events/handler"
	eventService "github.com/andreypavlenko/jobber/modules/events/service"

	jobHandler "github.com/andreypavlenko/jobber/modules/jobs/handler"
	jobService "github.com/andreypavlenko/jobber/modules/jobs/service"

	screeningHandler "github.com/andreypavlenko/jobber/modules/screening/handler"
	screeningService "github.com/andreypavlenko/jobber/modules/screening/service"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// @title Recruiting Pipeline API
// @version 1.0
// @description Autonomous recruiting pipeline: inbound-mail ingestion, AI-driven resume scoring, voice screening, and interview orchestration.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@jobber.example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Log.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Log.SentryDSN, Environment: cfg.Server.Env}); err != nil {
			logger.Warn("Failed to initialize Sentry, crash reporting disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	logger.Info("Starting recruiting pipeline API server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	// Initialize PostgreSQL
	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()
	logger.Info("Connected to PostgreSQL")

	// Run database migrations (MANDATORY: must run before HTTP server starts)
	migrationsPath := "./migrations"
	if err := postgres.RunMigrations(ctx, cfg.Database, logger, migrationsPath); err != nil {
		logger.Fatal("Failed to run database migrations",
			zap.Error(err),
			zap.String("migrations_path", migrationsPath),
		)
	}

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize S3 client (optional - gracefully handle missing config)
	var s3Client *storage.S3Client
	if cfg.S3.Endpoint != "" && cfg.S3.Bucket != "" {
		s3Client, err = storage.NewS3Client(cfg.S3)
		if err != nil {
			logger.Warn("Failed to initialize S3 client, resume/mailbox attachment storage will be disabled", zap.Error(err))
		} else {
			logger.Info("S3 client initialized", zap.String("bucket", cfg.S3.Bucket))
		}
	} else {
		logger.Info("S3 configuration not provided, resume/mailbox attachment storage will be disabled")
	}

	s := store.New(pgClient.Pool)

	// Oracle clients: one anthropic-sdk-go transport shared across the five
	// judgement/generator oracles, each with its own agent id / mock switch.
	usageSink := usage.New(redisClient.Client)
	oracleEvents := func(ctx context.Context, eventType string, payload map[string]any) {
		_ = s.Events.Append(ctx, s.Pool, nil, eventType, payload)
	}
	anthropicAPIKey := os.Getenv("ANTHROPIC_API_KEY")
	oracleClient := oracle.NewClient(anthropicAPIKey, usageSink, oracleEvents)

	classifier := oracle.NewClassifier(oracleClient, oracle.Config{
		AgentID: cfg.Oracles.Classifier.AgentID,
		Mock:    cfg.Oracles.Classifier.Mock,
	})
	resumeScorer := oracle.NewResumeScorer(oracleClient, oracle.Config{
		AgentID: cfg.Oracles.ResumeScorer.AgentID,
		Mock:    cfg.Oracles.ResumeScorer.Mock,
	})
	interviewEvaluator := oracle.NewInterviewEvaluator(oracleClient, oracle.Config{
		AgentID: cfg.Oracles.InterviewEvaluator.AgentID,
		Mock:    cfg.Oracles.InterviewEvaluator.Mock,
	})
	summarizer := oracle.NewSummarizer(oracleClient, oracle.Config{
		AgentID: cfg.Oracles.Summarizer.AgentID,
		Mock:    cfg.Oracles.Summarizer.Mock,
	})
	jobGenerator := oracle.NewJobGenerator(oracleClient, oracle.Config{
		AgentID: cfg.Oracles.JobGenerator.AgentID,
		Mock:    cfg.Oracles.JobGenerator.Mock,
	})

	mailerClient := mailer.New(os.Getenv("RESEND_API_KEY"), os.Getenv("MAIL_FROM_ADDRESS"), cfg.App.CompanyName)

	linkURLFor := func(token string) string {
		return fmt.Sprintf("%s/screening/%s", cfg.App.FrontendURL, token)
	}

	decisionEngine := decision.New(s, interviewEvaluator, summarizer, mailerClient)

	attachmentFetcher := func(ctx context.Context, emailID int64, filename string) ([]byte, error) {
		if s3Client == nil {
			return nil, fmt.Errorf("attachment storage not configured")
		}
		email, err := s.Emails.GetByID(ctx, s.Pool, emailID)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("mailbox-attachments/%s/%s", email.MessageID, filename)
		return s3Client.GetObjectBytes(ctx, key)
	}
	ingestPipeline := ingest.New(s, classifier, resumeScorer, mailerClient, attachmentFetcher, linkURLFor)

	screeningEngine := screening.New(s, decisionEngine, mailerClient)

	// Inbound-mail listener and its bounded dispatch queue into the ingest
	// pipeline. Both run for the lifetime of the process, independent of the
	// HTTP server.
	dispatchQueue := queue.New(redisClient.Client, "ingest:dispatch", 1000)
	var mailboxListener *mailbox.Listener
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if cfg.Mailbox.EmailAddress != "" {
		mailboxListener = mailbox.NewListener(s, s3Client, dispatchQueue, cfg.Mailbox, logger)
		go func() {
			if err := mailboxListener.Run(workerCtx); err != nil && err != context.Canceled {
				logger.WithError("mailbox_listener_stopped").Error(err.Error())
			}
		}()
		logger.Info("Mailbox listener started", zap.String("mode", cfg.Mailbox.Mode))
	} else {
		logger.Info("MAILBOX_EMAIL not set, inbound-mail listener disabled")
	}
	go runIngestWorker(workerCtx, dispatchQueue, ingestPipeline, logger)

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(httpPlatform.RequestIDMiddleware())
	router.Use(httpPlatform.LoggerMiddleware(logger))
	router.Use(httpPlatform.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", healthCheckHandler(ctx, pgClient, redisClient))

	// Ping endpoint
	router.GET("/ping", pingHandler)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Auth middleware
	authMiddleware := auth.AuthMiddleware(jwtManager)

	// Repositories kept from the identity/auth slice (plain pgx, unrelated to
	// the recruiting-domain store).
	userRepository := userRepo.NewUserRepository(pgClient.Pool)
	tokenRepository := authRepo.NewRefreshTokenRepository(pgClient.Pool)

	// Services
	authSvc := authService.NewAuthService(
		userRepository,
		tokenRepository,
		jwtManager,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	jobSvc := jobService.NewJobService(s, jobGenerator)
	candidateSvc := candidateService.NewCandidateService(s)
	applicationSvc := appService.NewApplicationService(s)
	eventSvc := eventService.NewEventService(s)
	screeningSvc := screeningService.NewScreeningService(screeningEngine, s, cfg.App.CompanyName, cfg.App.VoiceAgentID)
	dashboardSvc := dashboardService.NewDashboardService(s, screeningEngine, decisionEngine, mailerClient, linkURLFor)

	// Handlers
	authHdl := authHandler.NewAuthHandler(authSvc)
	jobHdl := jobHandler.NewJobHandler(jobSvc)
	candidateHdl := candidateHandler.NewCandidateHandler(candidateSvc)
	applicationHdl := appHandler.NewApplicationHandler(applicationSvc)
	eventHdl := eventHandler.NewEventHandler(eventSvc)
	screeningHdl := screeningHandler.NewScreeningHandler(screeningSvc, cfg.App.VoiceWebhookSecret)
	dashboardHdl := dashboardHandler.NewDashboardHandler(dashboardSvc)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		authHdl.RegisterRoutes(v1)
		jobHdl.RegisterRoutes(v1, authMiddleware)
		candidateHdl.RegisterRoutes(v1, authMiddleware)
		applicationHdl.RegisterRoutes(v1, authMiddleware)
		eventHdl.RegisterRoutes(v1, authMiddleware)
		screeningHdl.RegisterRoutes(v1) // candidate-facing, unauthenticated by token instead
		dashboardHdl.RegisterRoutes(v1, authMiddleware)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelWorkers()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// runIngestWorker drains the mailbox listener's dispatch queue and drives
// each Email through the ingest pipeline, one at a time. A failure on one
// Email is logged and does not block the next pop.
func runIngestWorker(ctx context.Context, q *queue.Queue, pipeline *ingest.Pipeline, log *logger.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		var item mailbox.DispatchItem
		ok, err := q.Pop(ctx, 5*time.Second, &item)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError("ingest_dequeue_failed").Error(err.Error())
			continue
		}
		if !ok {
			continue
		}
		if err := pipeline.ProcessEmail(ctx, item.EmailID); err != nil {
			log.WithEmailID(item.EmailID).WithError("ingest_process_failed").Error(err.Error())
		}
	}
}

// healthCheckHandler godoc
// @Summary Health Check
// @Description Check the health status of the application and its dependencies
// @Tags system
// @Produce json
// @Success 200 {object} http.HealthResponse
// @Router /health [get]
func healthCheckHandler(ctx context.Context, pgClient *postgres.Client, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := make(map[string]string)

		// Check PostgreSQL
		if err := pgClient.Health(ctx); err != nil {
			services["postgres"] = "down"
		} else {
			services["postgres"] = "up"
		}

		// Check Redis
		if err := redisClient.Health(ctx); err != nil {
			services["redis"] = "down"
		} else {
			services["redis"] = "up"
		}

		httpPlatform.RespondWithHealth(c, services)
	}
}

// pingHandler godoc
// @Summary Ping
// @Description Simple ping endpoint to check if the API is responding
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
