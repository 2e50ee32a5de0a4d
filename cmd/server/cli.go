package main

import (
	"fmt"
	"os"

	"petcare_settlement/internal/app"
	"petcare_settlement/internal/conf"

	"github.com/spf13/cobra"
)

type initFunc func(*conf.AppConfig) (*app.App, func(), error)

var rootCmd = &cobra.Command{
	Use:           "petcare_settlement",
	Short:         "Invoices, coupons and payments for pet-care bookings",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd builds a serve:<surface> command around one of the wire injectors.
func serveCmd(surface, long string, initialize initFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve:" + surface,
		Short: fmt.Sprintf("Start the %s HTTP server", surface),
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, cleanup, err := initialize(cfg)
			if err != nil {
				return fmt.Errorf("init %s: %w", surface, err)
			}
			defer cleanup()
			return a.Run()
		},
	}
}

func loadConfig(cmd *cobra.Command) (*conf.AppConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := conf.NewConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(
		serveCmd("frontend", "Serves the customer API and the Stripe webhook.", InitializeFrontendApp),
		serveCmd("console", "Serves the staff API and runs the outbox processor and finalization replayer.", InitializeConsoleApp),
	)
	rootCmd.PersistentFlags().IntP("port", "p", 0, "listen port, overrides the config file")
	rootCmd.PersistentFlags().StringP("config", "c", "internal/conf/config.yaml", "path to config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
