package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/xivishop/xivi/internal/cache"
	"github.com/xivishop/xivi/internal/catalog"
	"github.com/xivishop/xivi/internal/config"
	"github.com/xivishop/xivi/internal/db"
	"github.com/xivishop/xivi/internal/email"
	"github.com/xivishop/xivi/internal/handlers"
	"github.com/xivishop/xivi/internal/maintenance"
	"github.com/xivishop/xivi/internal/razorpay"
	"github.com/xivishop/xivi/internal/services"
)

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	CheckoutService *services.CheckoutService
	StatusService   *services.StatusService
	CleanupService  *services.CleanupService
	Scheduler       *maintenance.Scheduler
	Handlers        *handlers.Handlers

	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			logger.Warn("failed to initialize sentry, continuing without it", "error", err)
		} else {
			sentryEnabled = true
		}
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	productStore := db.NewProductStore(database)
	giftStore := db.NewGiftOptionStore(database)

	emailProvider, err := email.NewProvider(emailConfig(cfg))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	emailSender := services.NewStoreEmailSender(emailProvider, cfg.OwnerEmail)

	if err := seedCatalog(startupCtx, cfg, productStore, giftStore, logger); err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}

	var gateway *razorpay.Client
	if cfg.GatewayConfigured() {
		gateway = razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		logger.Warn("razorpay credentials not set, checkout requests will fail explicitly")
	}

	var checkoutService *services.CheckoutService
	if gateway != nil {
		checkoutService = services.NewCheckoutService(
			orderStore, productStore, giftStore,
			gateway, cfg.RazorpayKeySecret, cacheProvider, emailSender, cfg.Currency,
			logger.With("component", "checkout_service"),
		)
	} else {
		checkoutService = services.NewCheckoutService(
			orderStore, productStore, giftStore,
			nil, "", cacheProvider, emailSender, cfg.Currency,
			logger.With("component", "checkout_service"),
		)
	}

	statusService := services.NewStatusService(orderStore, emailSender, logger.With("component", "status_service"))
	cleanupService := services.NewCleanupService(orderStore, emailSender, services.DefaultRetention, logger.With("component", "cleanup_service"))
	scheduler := maintenance.NewScheduler(cleanupService, logger.With("component", "retention_scheduler"))

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CheckoutService: checkoutService,
		StatusService:   statusService,
		CleanupService:  cleanupService,
		Logger:          logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		DB:              database,
		CacheProvider:   cacheProvider,
		CheckoutService: checkoutService,
		StatusService:   statusService,
		CleanupService:  cleanupService,
		Scheduler:       scheduler,
		Handlers:        h,
		sentryEnabled:   sentryEnabled,
	}, nil
}

// Close drains in-flight notification work before releasing connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CheckoutService != nil {
		a.CheckoutService.Wait()
	}
	if a.StatusService != nil {
		a.StatusService.Wait()
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// seedCatalog loads the YAML catalog into the products and gift options
// tables. A missing catalog file is fine on an already seeded database.
func seedCatalog(ctx context.Context, cfg *config.Config, products *db.ProductStore, gifts *db.GiftOptionStore, logger *slog.Logger) error {
	if cfg.CatalogPath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.CatalogPath); os.IsNotExist(err) {
		logger.Info("no catalog file found, skipping catalog sync", "path", cfg.CatalogPath)
		return nil
	}

	parsed, err := catalog.NewParser().ParseFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalog.NewValidator().Validate(parsed); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	syncer := catalog.NewSyncer(products, gifts, logger.With("component", "catalog_syncer"))
	if err := syncer.Sync(ctx, parsed); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	return nil
}

func emailConfig(cfg *config.Config) email.Config {
	conf := email.Config{
		Provider: cfg.EmailProvider,
		From:     cfg.EmailFrom,
	}
	switch cfg.EmailProvider {
	case "resend":
		conf.APIKey = cfg.ResendAPIKey
	case "mailgun":
		conf.APIKey = cfg.MailgunAPIKey
		conf.Domain = cfg.MailgunDomain
	}
	return conf
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
