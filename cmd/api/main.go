package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/mailer"
	"fintrack/internal/middleware"
	"fintrack/internal/ratelimit"
	"fintrack/internal/response"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack is a personal finance application that lets users group income and expense transactions into trackers and follow each tracker's running balance.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators on gin's binding engine
	validator.Register()

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Local disk storage for receipt images and avatars
	files, err := storage.NewDisk(appConfig.StorageDir, appConfig.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	mail := &mailer.LogMailer{From: appConfig.MailFrom}

	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultRules()...)
	limiter.StartCleanup(10 * time.Minute)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db, appConfig.JWTSecret, appConfig.JWTExpirationDur)
	resetService := services.NewPasswordResetService(db, mail, appConfig.FrontendURL)
	trackerService := services.NewTrackerService(db, files)
	transactionService := services.NewTransactionService(db, trackerService, files)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokenService, resetService)
	userHandler := handlers.NewUserHandler(userService, files)
	trackerHandler := handlers.NewTrackerHandler(trackerService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, files)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(appConfig.CORSOrigins))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Publicly served uploads
	router.Static("/storage", files.Root())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		response.ErrorWithStatus(c, http.StatusNotFound, "Resource not found.")
	})

	api := router.Group("/api")

	// Public routes: the global API bucket keys by IP here, the caller has no
	// identity yet.
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(limiter, middleware.Key(ratelimit.BucketAPI, middleware.ByIP)))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketLoginEmailIP, middleware.ByBodyFieldAndIP("email")),
			middleware.Key(ratelimit.BucketLoginIP, middleware.ByIP),
		),
		authHandler.Login)
	auth.POST("/forgot-password",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketForgotEmail, middleware.ByBodyField("email")),
			middleware.Key(ratelimit.BucketForgotEmailIP, middleware.ByBodyFieldAndIP("email")),
		),
		authHandler.ForgotPassword)
	auth.POST("/reset-password",
		middleware.RateLimit(limiter,
			middleware.Key(ratelimit.BucketResetToken, middleware.ByBodyField("token")),
			middleware.Key(ratelimit.BucketResetIP, middleware.ByIP),
		),
		authHandler.ResetPassword)

	// Protected routes. The global API bucket runs after Auth so it keys by
	// the authenticated user, not the client address.
	protected := api.Group("/")
	protected.Use(middleware.Auth(tokenService))
	protected.Use(middleware.RateLimit(limiter, middleware.Key(ratelimit.BucketAPI, middleware.ByUserOrIP)))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.PUT("/user/avatar", userHandler.UpdateAvatar)

	// Tracker routes
	trackers := protected.Group("/trackers")
	trackers.GET("", trackerHandler.Index)
	trackers.POST("", trackerHandler.Store)
	trackers.GET("/:tracker", trackerHandler.Show)
	trackers.PATCH("/:tracker", trackerHandler.Update)
	trackers.DELETE("/:tracker", trackerHandler.Destroy)

	// Transaction routes, nested under the owning tracker
	trackers.POST("/:tracker/transactions", transactionHandler.Store)
	trackers.GET("/:tracker/transactions/:id", transactionHandler.Show)
	trackers.PATCH("/:tracker/transactions/:id", transactionHandler.Update)
	trackers.DELETE("/:tracker/transactions/:id", transactionHandler.Destroy)
	trackers.GET("/:tracker/paginate/transactions", transactionHandler.Paginate)
	trackers.GET("/:tracker/range/transactions", transactionHandler.Ranged)

	// Search routes
	search := protected.Group("/search")
	search.GET("/trackers", trackerHandler.Search)
	search.GET("/transactions", transactionHandler.Search)

	log.Infof("Starting Fintrack backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
