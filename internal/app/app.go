package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sparkreview_backend/database"
	"sparkreview_backend/internal/config"
	"sparkreview_backend/internal/email"
	"sparkreview_backend/internal/handlers"
	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/middleware"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/payments"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/routes"
	"sparkreview_backend/internal/services"
	"sparkreview_backend/internal/validator"
	"sparkreview_backend/internal/workers"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run schema migration", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	serviceContainer := initializeServices(cfg, gormDB)
	appHandlers := initializeHandlers(cfg, serviceContainer)

	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, appHandlers, serviceContainer.AuthService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWorkers(ctx, cfg, gormDB, serviceContainer)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB) *services.ServiceContainer {
	var emailService email.Provider
	if cfg.Email.SMTPHost != "" {
		smtpProvider, err := email.NewSMTPProvider(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize SMTP provider", "error", err)
		}
		emailService = smtpProvider
	} else {
		logger.Warn("SMTP is not configured, using mock email provider")
		emailService = email.NewMockProvider()
	}

	userRepo := repositories.NewUserRepository()
	requestRepo := repositories.NewRequestRepository()
	slotRepo := repositories.NewSlotRepository()
	appRepo := repositories.NewApplicationRepository()
	sparksRepo := repositories.NewSparksRepository()
	notificationRepo := repositories.NewNotificationRepository()

	gateway := payments.NewClient(
		cfg.Payments.GatewayURL,
		cfg.Payments.APIKey,
		cfg.Payments.WebhookSecret,
		time.Duration(cfg.Payments.TimeoutSeconds)*time.Second,
	)

	authService := services.NewAuthService(gormDB, userRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	sparksService := services.NewSparksService(
		gormDB, sparksRepo, userRepo,
		cfg.Lifecycle.AbandonHistoryDays,
		cfg.Lifecycle.WeeklyGoalReviews,
	)
	notificationService := services.NewNotificationService(gormDB, notificationRepo, requestRepo, userRepo, emailService)
	escrowService := services.NewEscrowService(
		gormDB, slotRepo, gateway,
		cfg.Payments.PlatformFeePercent,
		time.Duration(cfg.Payments.TimeoutSeconds)*time.Second,
	)
	lifecycleService := services.NewLifecycleService(
		gormDB, slotRepo, requestRepo, userRepo, appRepo,
		sparksService, escrowService, notificationService,
		time.Duration(cfg.Lifecycle.ClaimTimeoutHours)*time.Hour,
		time.Duration(cfg.Lifecycle.AutoAcceptDays)*24*time.Hour,
		time.Duration(cfg.Lifecycle.DisputeWindowDays)*24*time.Hour,
	)
	claimService := services.NewClaimService(gormDB, slotRepo, requestRepo, appRepo, lifecycleService, notificationService)
	requestService := services.NewRequestService(gormDB, requestRepo, slotRepo, userRepo, escrowService, lifecycleService)
	disputeService := services.NewDisputeService(
		gormDB, slotRepo, userRepo,
		sparksService, escrowService, lifecycleService, notificationService,
		models.DisputeOutcome(cfg.Lifecycle.ExpiredDisputeOutcome),
	)

	return &services.ServiceContainer{
		AuthService:         authService,
		RequestService:      requestService,
		ClaimService:        claimService,
		LifecycleService:    lifecycleService,
		EscrowService:       escrowService,
		SparksService:       sparksService,
		DisputeService:      disputeService,
		NotificationService: notificationService,
		EmailService:        emailService,
	}
}

func initializeHandlers(cfg *config.Config, sc *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	// The webhook handler verifies signatures against the same secret the
	// escrow gateway client was configured with.
	verifier := payments.NewClient(
		cfg.Payments.GatewayURL,
		cfg.Payments.APIKey,
		cfg.Payments.WebhookSecret,
		time.Duration(cfg.Payments.TimeoutSeconds)*time.Second,
	)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, sc.AuthService),
		RequestHandler:      handlers.NewRequestHandler(baseHandler, sc.RequestService),
		SlotHandler:         handlers.NewSlotHandler(baseHandler, sc.ClaimService, sc.LifecycleService),
		ApplicationHandler:  handlers.NewApplicationHandler(baseHandler, sc.ClaimService),
		DisputeHandler:      handlers.NewDisputeHandler(baseHandler, sc.DisputeService),
		SparksHandler:       handlers.NewSparksHandler(baseHandler, sc.SparksService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, sc.NotificationService),
		WebhookHandler:      handlers.NewWebhookHandler(baseHandler, sc.EscrowService, verifier),
	}
}

func startWorkers(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, sc *services.ServiceContainer) {
	sweeper := workers.NewSweeperWorker(
		gormDB,
		repositories.NewSlotRepository(),
		sc.LifecycleService,
		sc.DisputeService,
		time.Duration(cfg.Lifecycle.SweepIntervalMinutes)*time.Minute,
	)
	sweeper.Start(ctx)
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var adminUser models.User
	result := tx.Where("email = ?", adminEmail).First(&adminUser)

	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		tx.Rollback()
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: string(hashedPassword),
		DisplayName:  "Platform Administration",
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := tx.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	logger.Info("Successfully created first admin user", "email", adminEmail)
	return tx.Commit().Error
}
