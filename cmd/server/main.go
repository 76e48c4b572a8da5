package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	costplanapp "github.com/finz/backend/internal/application/costplan"
	remediationapp "github.com/finz/backend/internal/application/remediation"
	taxonomyapp "github.com/finz/backend/internal/application/taxonomy"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/finz/backend/internal/infrastructure/auth"
	"github.com/finz/backend/internal/infrastructure/cache"
	"github.com/finz/backend/internal/infrastructure/config"
	"github.com/finz/backend/internal/infrastructure/logger"
	"github.com/finz/backend/internal/infrastructure/persistence"
	"github.com/finz/backend/internal/infrastructure/scheduler"
	"github.com/finz/backend/internal/infrastructure/storage"
	"github.com/finz/backend/internal/infrastructure/telemetry"
	"github.com/finz/backend/internal/interfaces/http/handler"
	"github.com/finz/backend/internal/interfaces/http/middleware"
	"github.com/finz/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/finz/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Finz Backend API
//	@version		1.0
//	@description	Cost estimation backend - rubro taxonomy, baselines and allocation ledger

//	@contact.name	API Support
//	@contact.url	https://github.com/finz/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Finz Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry providers (no-op when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Continuous profiling. Span profiles hook into the tracer, so the
	// profiler has to be running before they are switched on.
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiler.Enabled,
		ServerAddress:       cfg.Profiler.ServerAddress,
		ApplicationName:     cfg.App.Name,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Warn("Failed to start continuous profiler", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
		if profiler.IsEnabled() && cfg.Profiler.SpanProfiles {
			if err := tracerProvider.EnableSpanProfiles(); err != nil {
				log.Warn("Failed to enable span profiles", zap.Error(err))
			}
		}
	}

	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Warn("Failed to initialize OTEL logs provider, continuing with local logging only", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := logsProvider.Shutdown(ctx); err != nil {
				log.Error("Error shutting down logs provider", zap.Error(err))
			}
		}()
		if logsProvider.IsEnabled() {
			otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    cfg.Telemetry.ServiceName,
				LoggerProvider: logsProvider,
				Level:          zapcore.InfoLevel,
			})
			log = telemetry.NewBridgedLogger(log.Core(), otelCore,
				zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		}
	}

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Attach database telemetry plugins
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := db.DB.Use(tracingPlugin); err != nil {
			log.Warn("Failed to register database tracing plugin", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("finz.db"), telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register database metrics plugin", zap.Error(err))
		} else {
			if sqlDB, err := db.DB.DB(); err == nil {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(context.Background())
			}
			defer dbMetrics.Stop()
		}
	}

	// Initialize repositories
	entryRepo := persistence.NewGormEntryRepository(db.DB)
	aliasRepo := persistence.NewGormAliasRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	baselineRepo := persistence.NewGormBaselineRepository(db.DB)
	recordRepo := persistence.NewGormRecordRepository(db.DB)

	// Taxonomy store and gate
	taxonomyStore := taxonomy.NewStore(entryRepo, aliasRepo)
	taxonomyGate := taxonomy.NewGate(taxonomyStore)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	taxonomyService := taxonomyapp.NewTaxonomyService(taxonomyStore, taxonomyGate)
	projectService := costplanapp.NewProjectService(projectRepo)
	materializer := costplanapp.NewMaterializer(taxonomyGate, recordRepo, log)
	baselineService := costplanapp.NewBaselineService(projectRepo, baselineRepo, materializer)
	forecastService := costplanapp.NewForecastService(projectRepo, baselineRepo, recordRepo, taxonomyStore)

	// Remediation scan state lives in Redis; an in-memory store covers
	// single-instance deployments when Redis is unreachable.
	remediationStore, err := cache.NewRemediationStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize remediation store", zap.Error(err))
	}
	defer func() {
		if err := remediationStore.Close(); err != nil {
			log.Error("Error closing remediation store", zap.Error(err))
		}
	}()

	// Scan report archive (S3-compatible object storage, stub when disabled)
	var reportArchive remediationapp.ReportArchive
	if cfg.Remediation.ReportBucket {
		s3Archive, err := storage.NewS3ReportArchive(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		reportArchive = s3Archive
		log.Info("Scan report archiving enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		reportArchive = storage.NewStubReportArchive()
	}

	scanner := remediationapp.NewScanner(taxonomyStore, recordRepo, remediationStore, log)
	remediationService := remediationapp.NewService(scanner, remediationStore, reportArchive, log)

	// Warm up the taxonomy. Resolution is refused until the snapshot is
	// loaded, so a failed warm-up leaves the pod not-ready rather than
	// serving misclassified identifiers.
	if cfg.Taxonomy.WarmupEnabled {
		warmupCtx, cancel := context.WithTimeout(context.Background(), cfg.Taxonomy.WarmupTimeout)
		status, err := taxonomyService.Warmup(warmupCtx)
		cancel()
		if err != nil {
			log.Fatal("Taxonomy warm-up failed", zap.Error(err))
		}
		log.Info("Taxonomy loaded",
			zap.Int("entries", status.Entries),
			zap.Int("aliases", status.Aliases),
		)
	} else {
		log.Warn("Taxonomy warm-up disabled; resolution unavailable until reload is called")
	}

	// Business metrics over the allocation ledger
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:          meterProvider.Meter("finz.business"),
			Logger:         log,
			LedgerProvider: telemetry.NewGormLedgerMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			metricsCtx, metricsCancel := context.WithCancel(context.Background())
			businessMetrics.StartPeriodicCollection(metricsCtx, 5*time.Minute)
			defer func() {
				metricsCancel()
				businessMetrics.Stop()
			}()
		}
	}

	// Nightly remediation scan scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		cronConfig := scheduler.DefaultRemediationCronSchedulerConfig()
		cronConfig.Enabled = cfg.Scheduler.Enabled
		cronConfig.CronHour = cfg.Scheduler.NightlyScanHour
		cronConfig.CronMinute = cfg.Scheduler.NightlyScanMinute
		cronConfig.BatchSize = cfg.Remediation.BatchSize
		cronConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		cronConfig.JobTimeout = cfg.Scheduler.JobTimeout
		cronConfig.RetryAttempts = cfg.Scheduler.RetryAttempts
		cronConfig.RetryDelay = cfg.Scheduler.RetryDelay

		scanExecutor := scheduler.NewScanExecutor(remediationService, log)
		scanJobRepo := scheduler.NewScanJobRepository(db.DB)
		cronScheduler := scheduler.NewRemediationCronScheduler(cronConfig, scanExecutor, scanJobRepo, log)
		if err := cronScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start remediation scheduler", zap.Error(err))
		}
		defer func() {
			if err := cronScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping remediation scheduler", zap.Error(err))
			}
		}()
		log.Info("Remediation scheduler started",
			zap.Int("hour", cronConfig.CronHour),
			zap.Int("minute", cronConfig.CronMinute),
			zap.String("mode", string(cronConfig.Mode)),
		)
	}

	// Initialize HTTP handlers
	taxonomyHandler := handler.NewTaxonomyHandler(taxonomyService)
	projectHandler := handler.NewProjectHandler(projectService)
	baselineHandler := handler.NewBaselineHandler(baselineService)
	forecastHandler := handler.NewForecastHandler(forecastService)
	remediationHandler := handler.NewRemediationHandler(remediationService)
	healthHandler := handler.NewHealthHandler(db.DB, taxonomyService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics - OpenTelemetry instrumentation
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanEnrichment())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("finz.http"), true))
	}
	if cfg.Profiler.Enabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Probes (outside API versioning)
	engine.GET("/health", healthHandler.Live)
	engine.GET("/ready", healthHandler.Ready)

	// JWT middleware is shared between the API group and swagger protection
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		swaggerGroup := engine.Group("/swagger")
		swaggerGroup.Use(middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtMiddleware))
		swaggerGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtMiddleware)

	// Taxonomy domain (rubro entries, aliases, resolution)
	taxonomyRoutes := router.NewDomainGroup("taxonomy", "/taxonomy")
	taxonomyRoutes.GET("/status", taxonomyHandler.Status)
	taxonomyRoutes.POST("/reload", taxonomyHandler.Reload)
	taxonomyRoutes.GET("/entries", taxonomyHandler.ListEntries)
	taxonomyRoutes.GET("/entries/:code", taxonomyHandler.GetEntry)
	taxonomyRoutes.GET("/aliases", taxonomyHandler.ListAliases)
	taxonomyRoutes.POST("/resolve", taxonomyHandler.Resolve)

	// Cost planning domain (projects, baselines, allocations, forecast)
	projectRoutes := router.NewDomainGroup("projects", "/projects")
	projectRoutes.POST("", projectHandler.Create)
	projectRoutes.GET("", projectHandler.List)
	projectRoutes.GET("/:id", projectHandler.GetByID)
	projectRoutes.PUT("/:id", projectHandler.Update)
	projectRoutes.POST("/:id/close", projectHandler.Close)
	projectRoutes.POST("/:id/baselines", baselineHandler.Create)
	projectRoutes.GET("/:id/baselines", baselineHandler.List)
	projectRoutes.GET("/:id/baselines/:baselineId", baselineHandler.GetByID)
	projectRoutes.POST("/:id/baselines/:baselineId/handoff", baselineHandler.HandOff)
	projectRoutes.POST("/:id/baselines/:baselineId/accept", baselineHandler.Accept)
	projectRoutes.GET("/:id/allocations", forecastHandler.ListAllocations)
	projectRoutes.GET("/:id/forecast", forecastHandler.GetForecast)

	// Remediation domain (ledger scans)
	remediationRoutes := router.NewDomainGroup("remediation", "/remediation")
	remediationRoutes.POST("/scans", remediationHandler.RunScan)
	remediationRoutes.GET("/scans/:scanId", remediationHandler.GetReport)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(taxonomyRoutes).
		Register(projectRoutes).
		Register(remediationRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
