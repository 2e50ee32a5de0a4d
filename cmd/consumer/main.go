package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"petcare_settlement/internal/conf"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cmd := &cobra.Command{
		Use:           "consumer",
		Short:         "Consume payment events and expire coupons",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringP("config", "c", "internal/conf/config.yaml", "path to config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := conf.NewConfig(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	consumer, cleanup, err := InitializeConsumerApp(cfg)
	if err != nil {
		return fmt.Errorf("init consumer: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer.logger.Info("consumer starting")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		consumer.logger.Error("consumer stopped", zap.Error(err))
		return err
	}
	consumer.logger.Info("consumer stopped")
	return nil
}
