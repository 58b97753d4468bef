package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"alcyxob/health-tracker/internal/api"
	"alcyxob/health-tracker/internal/app"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a JWT for --tenant signed with jwt.secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret is not configured")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.Expiration
		}
		token, err := api.IssueToken(cfg.JWT.Secret, tenantID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a snapshot of the tenant's data to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Export.ExportSnapshot(ctx, tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events and %d log rows to %s\n", res.Events, res.FoodLogRows, res.Key)
			fmt.Fprintf(cmd.OutOrStdout(), "Download: %s\n", res.DownloadURL)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd, exportCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default jwt.expiration)")
}
