package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/config"
	"github.com/anacarla/crm-api/controllers"
	"github.com/anacarla/crm-api/middleware"
	"github.com/anacarla/crm-api/repositories"
	"github.com/anacarla/crm-api/scheduler"
	"github.com/anacarla/crm-api/services"
	"github.com/anacarla/crm-api/telemetry"
)

const shutdownTimeout = 15 * time.Second

// application holds the wired dependencies of one server process
type application struct {
	cfg         *config.Config
	db          *gorm.DB
	logger      *logrus.Logger
	metrics     *telemetry.Registry
	controllers *controllers.Controllers
	scheduler   *scheduler.Scheduler
}

func main() {
	logger := config.GetLogger()
	logger.Info("Starting CRM API server...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	config.ConfigureLogger(cfg)

	// Connect to database
	if err := config.ConnectDatabase(cfg); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	logger.Info("Database migration completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.ConnectRedis(ctx, cfg); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	app, err := newApplication(ctx, cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithField("addr", server.Addr).Info("Server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	app.close(shutdownCtx)
	logger.Info("Server stopped")
}

// newApplication wires repositories, services and controllers around db.
// Redis backed locks and caches are used when a Redis client is connected,
// in-process ones otherwise.
func newApplication(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (*application, error) {
	metrics := telemetry.NewRegistry()

	var (
		locker services.Locker = services.NewLocalLocker()
		cache  services.Cache  = services.NewMemoryCache()
	)
	if rdb := config.GetRedisDB(); rdb != nil {
		locker = services.NewRedisLocker(config.GetRedisLock())
		cache = services.NewRedisCache(rdb)
	}

	var (
		storage services.AttachmentStorage
		uploads *controllers.UploadController
	)
	if cfg.S3Enabled() {
		s3Storage, err := services.NewS3Storage(ctx, services.S3Settings{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSS3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		storage = s3Storage
	} else {
		storage = services.NewLocalStorage(cfg.UploadDir)
		uploads = controllers.NewUploadController(cfg.UploadDir)
	}

	customerRepo := repositories.NewCustomerRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	menuRepo := repositories.NewMenuRepository(db)
	interactionRepo := repositories.NewInteractionRepository(db)
	tx := repositories.NewTransactor(db)

	recalc := services.NewMetricsRecalculator(orderRepo, customerRepo, tx, locker, metrics, logger.WithField("service", "metrics"))
	churn := services.NewChurnAlertJob(customerRepo, taskRepo, locker, services.ChurnSettings{
		Enabled:         cfg.ChurnAlertEnabled,
		BufferDays:      cfg.ChurnThresholdBufferDays,
		DedupeOpenTasks: cfg.ChurnDedupeOpenTasks,
	}, metrics, logger)

	customerService := services.NewCustomerService(customerRepo, orderRepo, tx, cfg.DefaultPhoneRegion, logger.WithField("service", "customers"))
	orderService := services.NewOrderService(orderRepo, customerRepo, menuRepo, recalc, tx, logger.WithField("service", "orders"))
	taskService := services.NewTaskService(taskRepo, customerRepo, logger.WithField("service", "tasks"))
	menuService := services.NewMenuService(menuRepo, cache, cfg.MenuCacheTTL, metrics, logger.WithField("service", "menu"))
	interactionService := services.NewInteractionService(interactionRepo, customerRepo, storage, logger.WithField("service", "interactions"))

	app := &application{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		metrics: metrics,
	}

	var history controllers.ChurnHistory
	if cfg.ChurnAlertEnabled {
		sched, err := scheduler.New(cfg.ChurnAlertCron, churn, scheduler.DefaultTimeout, logger.WithField("component", "scheduler"))
		if err != nil {
			return nil, err
		}
		app.scheduler = sched
		history = sched
	}

	app.controllers = &controllers.Controllers{
		Customers:    controllers.NewCustomerController(customerService, recalc),
		Orders:       controllers.NewOrderController(orderService),
		Tasks:        controllers.NewTaskController(taskService),
		Interactions: controllers.NewInteractionController(interactionService),
		Menu:         controllers.NewMenuController(menuService),
		Admin:        controllers.NewAdminController(churn, history),
		Uploads:      uploads,
	}
	return app, nil
}

// router builds the gin engine with every route mounted
func (a *application) router() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(a.logger))
	router.Use(a.metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", a.databaseStatus)
	}

	api := router.Group("/api/v1", middleware.Authenticate(a.cfg, a.logger))
	a.controllers.Register(api)
	return router
}

// close stops background work and releases connections
func (a *application) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.WithError(err).Warn("scheduler did not stop in time")
		}
	}
	if err := config.CloseRedis(); err != nil {
		a.logger.WithError(err).Warn("failed to close Redis")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "CRM API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func (a *application) databaseStatus(c *gin.Context) {
	// Get the underlying SQL database to check connection
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := config.ListTables(a.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
