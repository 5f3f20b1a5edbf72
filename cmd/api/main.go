package main

import (
	"context"
	"fmt"
	"time"

	common_api "go-paystack-sync/internal/common/api"
	"go-paystack-sync/internal/config"
	cron_feature "go-paystack-sync/internal/features/cron"
	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/features/polling"
	"go-paystack-sync/internal/features/proxy"
	"go-paystack-sync/internal/features/sync"
	"go-paystack-sync/internal/features/system"
	"go-paystack-sync/internal/features/webhook"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/middleware"
	"go-paystack-sync/internal/paystack"
	"go-paystack-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	log.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		log.Debug("Setting up route", zap.String("type", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	log.Info("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("Server listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatal("Server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// PersistPluginLogs tees plugin log entries into PAYSTACK_LOG_COLLECTION when it is set.
func PersistPluginLogs(lc fx.Lifecycle, log *zap.Logger, store document.Store, cfg *config.Config) *zap.Logger {
	collection := cfg.Paystack.LogCollection
	if collection == "" {
		return log
	}
	return logger.WithDBLogs(lc, log, func(ctx context.Context, record map[string]any) error {
		_, err := store.Create(ctx, collection, document.Document(record))
		return err
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, store document.Store, cfg *config.Config, log *zap.Logger) {
	mongoStore, ok := store.(*document.MongoStore)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// Use a background context with timeout for index creation
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				collections := make([]string, 0, len(cfg.Paystack.Sync))
				for _, sc := range cfg.Paystack.Sync {
					collections = append(collections, sc.Collection)
				}
				if err := mongoStore.EnsureIndexes(ctx, collections); err != nil {
					log.Error("Failed to ensure document indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// UpdateProductsCurrencyOnStart back-fills the default currency on remote products.
func UpdateProductsCurrencyOnStart(lc fx.Lifecycle, syncService sync.SyncService, cfg *config.Config, log *zap.Logger) {
	p := cfg.Paystack
	if !p.Enabled || !p.UpdateProductsCurrency || p.TestMode {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()

				updated, err := syncService.UpdateProductsCurrency(ctx)
				if err != nil {
					log.Error("Failed to update products currency", zap.Error(err))
					return
				}
				log.Info("Products currency updated", zap.Int("updated", updated), zap.String("currency", p.DefaultCurrency))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Store
			document.NewStore,

			// Initialize Paystack client
			paystack.NewClientFromConfig,
			func(c *paystack.Client) paystack.Caller { return c },

			// Initialize Services
			document.NewDocumentService,
			sync.NewSyncService,
			webhook.NewWebhookService,
			cron_feature.NewCronService,
			polling.NewPollingService,
			proxy.NewProxyService,

			// Initialize Controller
			document.NewDocumentController,
			sync.NewSyncController,
			webhook.NewWebhookController,
			cron_feature.NewCronController,
			polling.NewPollingController,
			proxy.NewProxyController,
			system.NewDebugController,
			system.NewHealthController,

			// Initialize API Routes
			AsRoute(document.NewDocumentApi),
			AsRoute(sync.NewSyncApi),
			AsRoute(webhook.NewWebhookApi),
			AsRoute(cron_feature.NewCronApi),
			AsRoute(polling.NewPollingApi),
			AsRoute(proxy.NewProxyApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
		),
		fx.Decorate(PersistPluginLogs),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			logger.LogStartup,

			// Attach outbound hooks before any request can mutate a collection
			func(syncService sync.SyncService) { syncService.Register() },
			func(pollingService polling.PollingService, cronService cron_feature.CronService) error {
				return pollingService.Register(cronService)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, cronService cron_feature.CronService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return cronService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return cronService.StopScheduler()
					},
				})
			},
			InitializeIndexes,
			UpdateProductsCurrencyOnStart,
		),
	)

	app.Run()
}
