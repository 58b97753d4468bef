package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"alcyxob/health-tracker/internal/app"
	"alcyxob/health-tracker/internal/domain"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show and update the weekly workout checklist",
}

var weekShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current week, rolling over first if the week changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			week, err := a.Checklist.EnsureCurrentWeek(ctx, tenantID)
			if err != nil {
				return err
			}
			printWeek(cmd.OutOrStdout(), week)
			return nil
		})
	},
}

var (
	checkUncheck bool
	checkDetails string
)

var weekCheckCmd = &cobra.Command{
	Use:   "check <category> <index>",
	Short: "Check an item of the current week (index starts at 1)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil || index < 1 {
			return fmt.Errorf("invalid index %q", args[1])
		}
		var details *string
		if cmd.Flags().Changed("details") {
			details = &checkDetails
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			week, err := a.Checklist.UpdateChecklistItem(ctx, tenantID, args[0], index-1, !checkUncheck, details)
			if err != nil {
				return err
			}
			printWeek(cmd.OutOrStdout(), week)
			return nil
		})
	},
}

var weekSummaryCmd = &cobra.Command{
	Use:   "summary <text>",
	Short: "Replace the summary of the current week",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			week, err := a.Checklist.UpdateChecklistSummary(ctx, tenantID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summary of %s updated.\n", week.WeekLabel)
			return nil
		})
	},
}

var archiveLimit int

var weekArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List archived weeks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			weeks, err := a.Checklist.ListArchivedWeeks(ctx, tenantID, archiveLimit)
			if err != nil {
				return err
			}
			if len(weeks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived weeks.")
				return nil
			}
			for i := range weeks {
				total := 0
				for _, items := range weeks[i].Categories {
					total += len(items)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d/%d done  %s\n", weeks[i].WeekStart, weeks[i].CheckedCount(), total, oneLine(weeks[i].Summary))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(weekCmd)
	weekCmd.AddCommand(weekShowCmd, weekCheckCmd, weekSummaryCmd, weekArchiveCmd)

	weekCheckCmd.Flags().BoolVar(&checkUncheck, "uncheck", false, "Uncheck instead of check")
	weekCheckCmd.Flags().StringVar(&checkDetails, "details", "", "Details to store with the item")
	weekArchiveCmd.Flags().IntVar(&archiveLimit, "limit", 8, "Max weeks (0 for all)")
}

func printWeek(out io.Writer, week *domain.WeeklyChecklist) {
	fmt.Fprintf(out, "%s (%s)\n", week.WeekLabel, week.WeekStart)
	if len(week.CategoryOrder) == 0 {
		fmt.Fprintln(out, "  no categories")
	}
	for _, key := range week.CategoryOrder {
		fmt.Fprintf(out, "%s:\n", week.Label(key))
		for i, it := range week.Categories[key] {
			mark := " "
			if it.Checked {
				mark = "x"
			}
			line := fmt.Sprintf("  %d. [%s] %s", i+1, mark, it.Item)
			if it.Details != "" {
				line += " - " + it.Details
			}
			fmt.Fprintln(out, line)
		}
	}
	if week.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", week.Summary)
	}
}
