package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"go-paystack-sync/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// NewPostgres opens the alternative document backend and closes it on shutdown.
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres connection...")
			return db.Close()
		},
	})
	return db, nil
}
