package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Write booking events from the broker to the booking log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadMemory()
			if err != nil {
				return err
			}
			if cfg.Broker.URL == "" {
				return errors.New("RABBITMQ_URL is required")
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info("consuming booking events", zap.String("exchange", cfg.Broker.Exchange), zap.String("queue", cfg.Broker.Queue))
			if err := queue.NewConsumer(consumerConfig(cfg), log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
