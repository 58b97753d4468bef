package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"alcyxob/health-tracker/internal/app"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/logging"
	"alcyxob/health-tracker/internal/repository"
)

var (
	configPath string
	tenantID   string
)

var nowFunc = time.Now

var rootCmd = &cobra.Command{
	Use:           "trackctl",
	Short:         "trackctl inspects and maintains health-tracker data",
	Long:          "trackctl runs the tracker services directly against the configured storage backend: meals, daily totals, the food log and the weekly workout checklist.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory holding config.yaml and .env")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", repository.DefaultTenant, "Tenant id to operate on")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp builds the services from config, runs fn and releases storage.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}
