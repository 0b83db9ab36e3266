package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "cinema",
	Short:         "Cinema booking backend",
	Long:          `Seat maps, bookings, payments and live seat updates for a small cinema chain.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is fine, the environment may already be set
		_ = godotenv.Load()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), consumeCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Service:     "cinema",
		Development: cfg.IsDev(),
	})
}

// bootstrap loads the full configuration and opens MySQL.
func bootstrap() (config.Config, *zap.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, nil, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return cfg, log, nil, fmt.Errorf("connect mysql: %w", err)
	}
	return cfg, log, db, nil
}
