package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	billapp "github.com/pdv/backend/internal/application/bill"
	cashapp "github.com/pdv/backend/internal/application/cash"
	catalogapp "github.com/pdv/backend/internal/application/catalog"
	companyapp "github.com/pdv/backend/internal/application/company"
	customerapp "github.com/pdv/backend/internal/application/customer"
	fiscalapp "github.com/pdv/backend/internal/application/fiscal"
	identityapp "github.com/pdv/backend/internal/application/identity"
	notificationapp "github.com/pdv/backend/internal/application/notification"
	printingapp "github.com/pdv/backend/internal/application/printing"
	reportapp "github.com/pdv/backend/internal/application/report"
	saleapp "github.com/pdv/backend/internal/application/sale"
	sellerapp "github.com/pdv/backend/internal/application/seller"
	"github.com/pdv/backend/internal/domain/notification"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/pdv/backend/internal/infrastructure/event"
	"github.com/pdv/backend/internal/infrastructure/fiscal"
	"github.com/pdv/backend/internal/infrastructure/logger"
	"github.com/pdv/backend/internal/infrastructure/notify"
	"github.com/pdv/backend/internal/infrastructure/persistence"
	"github.com/pdv/backend/internal/infrastructure/printing"
	"github.com/pdv/backend/internal/infrastructure/scheduler"
	"github.com/pdv/backend/internal/infrastructure/storage"
	"github.com/pdv/backend/internal/infrastructure/telemetry"
	"github.com/pdv/backend/internal/interfaces/http/handler"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"

	_ "github.com/pdv/backend/docs"
)

//	@title			PDV API
//	@version		1.0
//	@description	Multi-tenant point of sale backend: catalog, checkout, cash sessions, bills, NFC-e/NFS-e and receipt printing.

//	@contact.name	API Support
//	@contact.url	https://github.com/pdv/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	fiscalSyncBatch    = 100
	reminderBatch      = 200
	rateLimiterMaxIdle = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog := logger.New(logCfg)

	// Telemetry first so the root logger can tee into the OTEL log bridge
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, bootLog.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log := logger.New(logCfg, providers.ZapCore())
	defer func() { _ = log.Sync() }()

	log.Info("Starting PDV backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	watching, err := config.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.Warn("Ignoring invalid configuration change", zap.Error(err))
			return
		}
		log.SetLevel(next.Log.Level)
		log.Info("Configuration reloaded", zap.String("log_level", next.Log.Level))
	})
	if err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	} else if watching {
		log.Info("Watching config file for log level changes")
	}

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log.Logger)
	if err != nil {
		return err
	}
	if cfg.Telemetry.ProfilingEnabled {
		providers.EnableSpanProfiles()
	}
	metrics := telemetry.NewMetrics()

	// Database
	gormLog := logger.NewGormLogger(log.Logger, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowQuery)
	db, err := persistence.Connect(ctx, &cfg.Database, log.Logger,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugins(telemetry.GormPlugins(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled, metrics, cfg.Database.SlowQuery)...),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := metrics.RegisterDB(sqlDB, cfg.Database.DBName); err != nil {
			log.Warn("Failed to register database pool metrics", zap.Error(err))
		}
	}

	// Redis backs the cache, idempotency keys and the token blacklist. Without
	// it the process keeps working on in-memory equivalents.
	var (
		store     cache.Store
		blacklist auth.TokenBlacklist
	)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory cache and token blacklist", zap.Error(err))
		mem := cache.NewMemoryStore(time.Minute)
		defer func() { _ = mem.Close() }()
		store = mem
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		defer func() { _ = redisClient.Close() }()
		store = cache.NewRedisStore(redisClient, "pdv:")
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	idempotency := cache.NewIdempotency(store, cfg.Cache.IdempotencyTTL)
	loader := cache.NewLoader(store, log.Logger)

	objects, err := newObjectStorage(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}

	eventBus := event.NewInMemoryEventBus(log.Logger, event.WithWorkers(4))

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	sellerRepo := persistence.NewGormSellerRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	cashRepo := persistence.NewGormCashSessionRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	fiscalDocRepo := persistence.NewGormFiscalDocumentRepository(db.DB)
	fiscalSeqRepo := persistence.NewGormFiscalSequenceRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	printerRepo := persistence.NewGormPrinterRepository(db.DB)
	printJobRepo := persistence.NewGormPrintJobRepository(db.DB)
	salesQueryRepo := persistence.NewGormSalesQueryRepository(db.DB)
	tx := persistence.NewTxManager(db.DB)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authCfg := identityapp.AuthServiceConfigFrom(cfg.Security, cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, companyRepo, jwtService, blacklist, authCfg, log.Logger)
	userService := identityapp.NewUserService(userRepo, blacklist, eventBus, authCfg, log.Logger)
	companyService := companyapp.NewService(companyRepo, userRepo, tx, jwtService, objects, loader, cfg.Cache.CompanyTTL, eventBus, log.Logger)
	productService := catalogapp.NewProductService(productRepo, movementRepo, tx, objects, eventBus, log.Logger)
	customerService := customerapp.NewService(customerRepo, log.Logger)
	sellerService := sellerapp.NewService(sellerRepo, userRepo, salesQueryRepo, log.Logger)
	cashService := cashapp.NewService(cashRepo, saleRepo, tx, eventBus, log.Logger)
	billService := billapp.NewService(billRepo, customerRepo, eventBus, log.Logger)

	fiscalService := fiscalapp.NewService(fiscalapp.Deps{
		Documents: fiscalDocRepo,
		Sequences: fiscalSeqRepo,
		Sales:     saleRepo,
		Customers: customerRepo,
		Companies: companyService,
		Gateway:   fiscal.NewHTTPGateway(cfg.Fiscal, log.Logger),
		Storage:   objects,
		Tx:        tx,
		Publisher: eventBus,
	}, fiscalapp.Config{Enabled: cfg.Fiscal.Enabled, WebhookSecret: cfg.Fiscal.WebhookSecret}, log.Logger)

	saleService := saleapp.NewService(saleapp.Deps{
		Sales:       saleRepo,
		Products:    productRepo,
		Movements:   movementRepo,
		Customers:   customerRepo,
		Sellers:     sellerRepo,
		Sessions:    cashRepo,
		Companies:   companyService,
		Fiscal:      fiscalService,
		Tx:          tx,
		Idempotency: idempotency,
		Publisher:   eventBus,
	}, log.Logger)

	receipts := printingapp.NewReceiptLoader(saleRepo, customerRepo, sellerRepo, userRepo, fiscalService, companyService)
	printingService := printingapp.NewService(printingapp.Deps{
		Printers:  printerRepo,
		Jobs:      printJobRepo,
		Driver:    printing.NewDispatcher(cfg.Printer, log.Logger),
		Receipts:  receipts,
		Sessions:  cashService,
		Users:     userRepo,
		Companies: companyService,
		Metrics:   metrics,
	}, log.Logger)

	renderer := newRenderer(cfg.Printer, log.Logger)
	if renderer != nil {
		defer func() { _ = renderer.Close() }()
	}
	notifyDeps := notificationapp.Deps{
		Notifications: notificationRepo,
		Receipts:      receipts,
		Storage:       objects,
		Bills:         billRepo,
		Customers:     customerRepo,
		Companies:     companyService,
		Metrics:       metrics,
	}
	if renderer != nil {
		notifyDeps.Renderer = renderer
	}
	notifyDeps.Mailer, notifyDeps.WhatsApp = newSenders(cfg, log.Logger)
	notificationService := notificationapp.NewService(notifyDeps, log.Logger)

	reportService := reportapp.NewService(salesQueryRepo, billRepo, productRepo, cashService, loader, cfg.Cache.ReportTTL, log.Logger)

	// Event handlers
	storeCredit := billapp.NewStoreCreditHandler(billRepo, log.Logger)
	eventBus.Subscribe(storeCredit, storeCredit.EventTypes()...)
	autoNFCe := fiscalapp.NewAutoNFCeHandler(fiscalService, companyService, log.Logger)
	eventBus.SubscribeAsync(autoNFCe, autoNFCe.EventTypes()...)
	eventMetrics := telemetry.NewEventMetrics(metrics)
	eventBus.SubscribeAsync(eventMetrics, eventMetrics.EventTypes()...)
	log.Info("Event handlers registered",
		zap.Strings("store_credit_events", storeCredit.EventTypes()),
		zap.Strings("auto_nfce_events", autoNFCe.EventTypes()),
		zap.Strings("metrics_events", eventMetrics.EventTypes()),
	)
	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	apiLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
	loginLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimit, time.Minute, cfg.HTTP.AuthRateLimit)

	jobs, err := newScheduler(cfg.Scheduler, log.Logger, fiscalService, notificationService, apiLimiter, loginLimiter)
	if err != nil {
		return err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log.Logger),
		middleware.Tracing(cfg.Telemetry.ServiceName, providers.TracingEnabled()),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log.Logger),
		middleware.HTTPMetrics(metrics),
		middleware.Profiling(profiler),
		middleware.Secure(middleware.DefaultSecurityConfig(cfg.App.IsProduction())),
		middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	var apiMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(apiLimiter, middleware.KeyByIP, metrics.RateLimited))
	}
	loginLimit := middleware.RateLimit(loginLimiter, middleware.KeyByIP, metrics.RateLimited)

	authMiddleware := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log.Logger,
	})

	printerHandler := handler.NewPrinterHandler(printingService)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithMiddleware(apiMiddleware...))
	r.Register(
		handler.AuthRoutes(handler.NewAuthHandler(authService, companyService), authMiddleware, loginLimit),
		handler.CompanyRoutes(handler.NewCompanyHandler(companyService), authMiddleware),
		handler.UserRoutes(handler.NewUserHandler(userService), authMiddleware),
		handler.ProductRoutes(handler.NewProductHandler(productService), authMiddleware),
		handler.SellerRoutes(handler.NewSellerHandler(sellerService), authMiddleware),
		handler.CustomerRoutes(handler.NewCustomerHandler(customerService), authMiddleware),
		handler.SaleRoutes(handler.NewSaleHandler(saleService), authMiddleware),
		handler.CashRoutes(handler.NewCashHandler(cashService), authMiddleware),
		handler.BillRoutes(handler.NewBillHandler(billService), authMiddleware),
		handler.FiscalRoutes(handler.NewFiscalHandler(fiscalService), authMiddleware),
		handler.PrinterRoutes(printerHandler, authMiddleware),
		handler.PrintRoutes(printerHandler, authMiddleware),
		handler.NotificationRoutes(handler.NewNotificationHandler(notificationService), authMiddleware),
		handler.ReportRoutes(handler.NewReportHandler(reportService), authMiddleware),
	)
	r.Setup()

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = redisPing(redisClient)
	}
	handler.HealthRoutes(engine, handler.NewHealthHandler(version, checks, jobs), metrics.Handler())

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	if cfg.Scheduler.Enabled {
		if err := jobs.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := jobs.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := eventBus.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := profiler.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := providers.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with errors", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// newObjectStorage returns the S3 store when enabled, otherwise an in-process stub
func newObjectStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.ObjectStorage, error) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, using in-memory stub")
		return storage.NewStubObjectStorage(), nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiry(cfg.Storage.PresignExpiry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	return s3, nil
}

func newRenderer(cfg config.PrinterConfig, log *zap.Logger) *printing.ChromedpRenderer {
	if cfg.PDFRenderer != "chromedp" {
		return nil
	}
	return printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.CommandTimeout,
		NoSandbox:      os.Geteuid() == 0,
		Logger:         log,
	})
}

// newSenders returns nil interfaces for disabled channels
func newSenders(cfg *config.Config, log *zap.Logger) (notification.Mailer, notification.WhatsAppSender) {
	var (
		mailer   notification.Mailer
		whatsapp notification.WhatsAppSender
	)
	if cfg.SMTP.Enabled {
		mailer = notify.NewSMTPMailer(cfg.SMTP, log)
	}
	if cfg.WhatsApp.Enabled {
		whatsapp = notify.NewWhatsAppClient(cfg.WhatsApp, log)
	}
	log.Info("Notification channels",
		zap.Bool("email", mailer != nil),
		zap.Bool("whatsapp", whatsapp != nil),
	)
	return mailer, whatsapp
}

func newScheduler(
	cfg config.SchedulerConfig,
	log *zap.Logger,
	fiscalService *fiscalapp.Service,
	notifications *notificationapp.Service,
	limiters ...*middleware.RateLimiter,
) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := s.Add("fiscal-sync", cfg.FiscalSyncSchedule, func(ctx context.Context) error {
		n, err := fiscalService.SyncStatus(ctx, fiscalSyncBatch)
		if n > 0 {
			log.Info("Fiscal documents synced", zap.Int("count", n))
		}
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.Add("bill-reminders", cfg.BillReminderSchedule, func(ctx context.Context) error {
		n, err := notifications.RemindDue(ctx, reminderBatch)
		if n > 0 {
			log.Info("Bill reminders sent", zap.Int("count", n))
		}
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.Add("janitor", cfg.JanitorSchedule, func(ctx context.Context) error {
		removed := 0
		for _, l := range limiters {
			removed += l.Sweep(rateLimiterMaxIdle)
		}
		log.Debug("Rate limiter keys swept", zap.Int("removed", removed))
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func redisPing(client *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
