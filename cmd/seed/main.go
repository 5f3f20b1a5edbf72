package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/features/sync"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/paystack"
	"go-paystack-sync/pkg/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const seedPath = "cmd/seed/data/seed.json"

// Options come from the command line.
type Options struct {
	// TokenFor is the email of a seeded customer to mint a development JWT for.
	TokenFor string
	TokenTTL time.Duration
}

// Seed runs the database seeding
func Seed(
	lc fx.Lifecycle,
	cfg *config.Config,
	opts Options,
	docs document.DocumentService,
	syncService sync.SyncService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	syncService.Register()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Starting Database Seeding from JSON...")

				entries, err := readEntries(seedPath)
				if err != nil {
					logger.Error("Failed to read seed data", zap.String("path", seedPath), zap.Error(err))
					return
				}

				created, skipped, err := SeedDocuments(context.Background(), docs, entries)
				if err != nil {
					logger.Error("Seeding failed", zap.Int("created", created), zap.Error(err))
					return
				}
				logger.Info("✅ Seed data added", zap.Int("created", created), zap.Int("skipped", skipped))

				if opts.TokenFor == "" {
					return
				}
				utils.SetSecret(cfg.JWTSecret)
				token, err := IssueToken(context.Background(), docs, "customer", opts.TokenFor, opts.TokenTTL)
				if err != nil {
					logger.Error("Failed to issue token", zap.String("email", opts.TokenFor), zap.Error(err))
					return
				}
				logger.Info("🔑 Issued development token", zap.String("email", opts.TokenFor), zap.Duration("ttl", opts.TokenTTL))
				fmt.Println(token)
			}()
			return nil
		},
	})
}

func main() {
	tokenFor := flag.String("token", "", "email of a seeded customer to print a JWT for")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed JWT")
	flag.Parse()

	app := fx.New(
		fx.Supply(Options{TokenFor: *tokenFor, TokenTTL: *tokenTTL}),
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			document.NewStore,
			paystack.NewClientFromConfig,
			func(c *paystack.Client) paystack.Caller { return c },
			document.NewDocumentService,
			sync.NewSyncService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()
}
