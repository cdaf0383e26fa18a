package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-scheduler-backend/internal/app/usecases"
	"clinic-scheduler-backend/internal/domain/services"
	"clinic-scheduler-backend/internal/http/handlers"
	"clinic-scheduler-backend/internal/http/middleware"
	"clinic-scheduler-backend/internal/http/routes"
	"clinic-scheduler-backend/internal/infra/cache"
	"clinic-scheduler-backend/internal/infra/config"
	"clinic-scheduler-backend/internal/infra/database/postgres"
	postgresRepos "clinic-scheduler-backend/internal/infra/database/postgres/repositories"
	"clinic-scheduler-backend/internal/infra/logger"
	"clinic-scheduler-backend/internal/infra/notify"
	"clinic-scheduler-backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewLogger(cfg.Log.Level)
	appLogger.Logger.Info("Starting Clinic Scheduler Backend API")

	if cfg.Auth.JWTSigningSecret != "" {
		os.Setenv("JWT_SIGNING_SECRET", cfg.Auth.JWTSigningSecret)
	}

	// Initialize database connection
	dbConn, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		appLogger.Logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbConn.Close()

	appLogger.Logger.Info("Database connection established")
	db := dbConn.GetDB()

	// Initialize repositories
	clinicRepo := postgresRepos.NewClinicPostgresRepository(db)
	patientRepo := postgresRepos.NewPatientPostgresRepository(db)
	lineUserRepo := postgresRepos.NewLineUserPostgresRepository(db)
	appointmentTypeRepo := postgresRepos.NewAppointmentTypePostgresRepository(db)
	practitionerAppointmentTypeRepo := postgresRepos.NewPractitionerAppointmentTypePostgresRepository(db)
	calendarEventRepo := postgresRepos.NewCalendarEventPostgresRepository(db)
	appointmentRepo := postgresRepos.NewAppointmentPostgresRepository(db)
	practitionerAvailabilityRepo := postgresRepos.NewPractitionerAvailabilityPostgresRepository(db)
	availabilityExceptionRepo := postgresRepos.NewAvailabilityExceptionPostgresRepository(db)
	resourceRepo := postgresRepos.NewResourcePostgresRepository(db)
	resourceRequirementRepo := postgresRepos.NewAppointmentResourceRequirementPostgresRepository(db)
	resourceAllocationRepo := postgresRepos.NewAppointmentResourceAllocationPostgresRepository(db)
	billingScenarioRepo := postgresRepos.NewBillingScenarioPostgresRepository(db)
	followUpMessageRepo := postgresRepos.NewFollowUpMessagePostgresRepository(db)
	userAssociationRepo := postgresRepos.NewUserClinicAssociationPostgresRepository(db)
	uow := postgresRepos.NewUnitOfWork(db)

	// Redis is optional: an empty address leaves the cache running in its
	// fail-open mode. The LIFF rate limiter is in-process and never uses Redis.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	revealCache := cache.New(redisClient)
	liffLimiter := ratelimit.NewPerKeyLimiter(rate.Every(time.Minute/5), 5)

	// Initialize domain services
	conflictEngine := services.NewConflictEngine(calendarEventRepo, practitionerAvailabilityRepo, appointmentRepo, resourceRequirementRepo, resourceRepo)
	bookingPolicy := services.NewBookingPolicyEvaluator()
	notificationEngine := services.NewNotificationEngine()

	// Initialize the outbound notification worker pool and its LINE sender.
	lineSender := notify.NewLineSender(cfg.Notify.LineChannelToken)
	workerPool := notify.NewWorkerPool(cfg.Notify.WorkerCount, lineSender, appLogger.Logger)
	defer workerPool.Close()
	notificationSink := notify.NewSink(workerPool, appointmentRepo, calendarEventRepo, appointmentTypeRepo, patientRepo, lineUserRepo, clinicRepo, userAssociationRepo, appLogger.Logger)

	// Initialize use cases
	settingsUseCase := usecases.NewSettingsUseCase(clinicRepo, uow, liffLimiter)
	catalogUseCase := usecases.NewServiceCatalogUseCase(uow, appointmentTypeRepo, practitionerAppointmentTypeRepo, billingScenarioRepo, resourceRequirementRepo, followUpMessageRepo, appointmentRepo)
	calendarUseCase := usecases.NewCalendarUseCase(calendarEventRepo, appointmentRepo, appointmentTypeRepo, patientRepo, resourceAllocationRepo)
	lifecycleUseCase := usecases.NewAppointmentLifecycleUseCase(
		clinicRepo, patientRepo, appointmentTypeRepo, practitionerAppointmentTypeRepo,
		calendarEventRepo, appointmentRepo, conflictEngine, bookingPolicy, notificationEngine, notificationSink,
	)
	availabilityUseCase := usecases.NewAvailabilityUseCase(
		uow, practitionerAvailabilityRepo, availabilityExceptionRepo, calendarEventRepo,
		appointmentRepo, appointmentTypeRepo, conflictEngine, calendarUseCase,
	)

	// Start the Auto-Assignment Reveal Scheduler.
	revealCtx, cancelReveal := context.WithCancel(context.Background())
	defer cancelReveal()
	revealScheduler := services.NewRevealScheduler(clinicRepo, appointmentRepo, notificationSink.Enqueue, appLogger.Logger, cfg.Reveal.Interval(), revealCache)
	go revealScheduler.Run(revealCtx)

	// Initialize handlers
	h := &routes.Handlers{
		Health:       handlers.NewHealthHandler(),
		Settings:     handlers.NewSettingsHandler(settingsUseCase, catalogUseCase, cfg.Frontend.BaseURL, appLogger),
		Catalog:      handlers.NewServiceCatalogHandler(catalogUseCase, appLogger),
		Appointment:  handlers.NewAppointmentHandler(lifecycleUseCase, calendarUseCase, appLogger),
		Availability: handlers.NewAvailabilityHandler(availabilityUseCase, appointmentTypeRepo, appLogger),
	}

	// Set Gin mode
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Setup routes
	routes.Setup(router, h, appLogger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Logger.WithField("address", cfg.Server.GetAddress()).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Logger.Info("Shutting down server...")

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Logger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Logger.Info("Server exited")
}
