package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"alcyxob/health-tracker/internal/app"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/service"
)

var (
	addDate        string
	addDescription string
	addSource      string
	addNotes       string
	addCalories    float64
	addProtein     float64
	addCarbs       float64
	addFat         float64
	addFiber       float64
	addKey         string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a meal",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.FoodEventInput{
			Date:        addDate,
			Source:      domain.Source(addSource),
			Description: addDescription,
			Notes:       addNotes,
			Nutrients: &domain.Nutrients{
				Calories: addCalories,
				ProteinG: addProtein,
				CarbsG:   addCarbs,
				FatG:     addFat,
			},
			Model:      "manual",
			Confidence: 1,
		}
		if cmd.Flags().Changed("fiber") {
			in.Nutrients.FiberG = domain.Float(addFiber)
		}
		if addKey != "" {
			in.IdempotencyKey = &addKey
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Tracking.AddFoodEvent(ctx, tenantID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s event %s on %s\n", res.LogAction, res.Event.ID, res.Event.Date)
			printTotals(cmd.OutOrStdout(), res.Totals)
			return nil
		})
	},
}

var totalsDate string

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show nutrient totals of a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			date := dateOrToday(a, totalsDate)
			totals, err := a.Tracking.GetDailyTotals(ctx, tenantID, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Date: %s\n", date)
			printTotals(cmd.OutOrStdout(), totals)
			return nil
		})
	},
}

var eventsDate string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the meals of a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			events, err := a.Tracking.GetFoodEventsForDate(ctx, tenantID, dateOrToday(a, eventsDate))
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No meals logged.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tID\tSOURCE\tKCAL\tDESCRIPTION")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n", ev.LoggedAt.Format("15:04"), ev.ID, ev.Source, ev.Nutrients.Calories, ev.Description)
			}
			return w.Flush()
		})
	},
}

var (
	logFrom  string
	logTo    string
	logLimit int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List food log rows, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rows, err := a.Tracking.ListFoodLog(ctx, tenantID, service.FoodLogQuery{From: logFrom, To: logTo, Limit: logLimit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDAY\tKCAL\tPROTEIN\tWEIGHT\tSTATUS\tHEALTHY\tNOTES")
			for _, row := range rows {
				weight := "-"
				if row.WeightLb != nil {
					weight = fmt.Sprintf("%.1f", *row.WeightLb)
				}
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%.1f\t%s\t%s\t%s\t%s\n",
					row.Date, row.DayOfWeek, row.Calories, row.ProteinG, weight, row.Status, row.Healthy, oneLine(row.Notes))
			}
			return w.Flush()
		})
	},
}

var (
	rollupDate      string
	rollupOverwrite bool
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Build the food log row of a date from its events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Tracking.RollupFromEvents(ctx, tenantID, dateOrToday(a, rollupDate), rollupOverwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s from %d events (%.0f kcal)\n", res.Action, res.Row.Date, res.EventCount, res.Row.Calories)
			return nil
		})
	},
}

var (
	syncDate string
	syncAll  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-synthesize food log rows from unsynced events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Tracking.SyncEventsToFoodLog(ctx, tenantID, syncDate, !syncAll)
			if err != nil {
				return err
			}
			if len(res.Dates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d events across %s\n", res.EventsSynced, strings.Join(res.Dates, ", "))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd, totalsCmd, eventsCmd, logCmd, rollupCmd, syncCmd)

	addCmd.Flags().StringVar(&addDate, "date", "", "Logical date YYYY-MM-DD (default: suggested date for now)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "What was eaten")
	addCmd.Flags().StringVar(&addSource, "source", string(domain.SourceManual), "manual or photo")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Free-text notes")
	addCmd.Flags().Float64Var(&addCalories, "calories", 0, "Calories")
	addCmd.Flags().Float64Var(&addProtein, "protein", 0, "Protein grams")
	addCmd.Flags().Float64Var(&addCarbs, "carbs", 0, "Carbohydrate grams")
	addCmd.Flags().Float64Var(&addFat, "fat", 0, "Fat grams")
	addCmd.Flags().Float64Var(&addFiber, "fiber", 0, "Fiber grams (omit when unknown)")
	addCmd.Flags().StringVar(&addKey, "key", "", "Idempotency key")
	_ = addCmd.MarkFlagRequired("description")

	totalsCmd.Flags().StringVar(&totalsDate, "date", "", "Date YYYY-MM-DD (default today)")
	eventsCmd.Flags().StringVar(&eventsDate, "date", "", "Date YYYY-MM-DD (default today)")
	logCmd.Flags().StringVar(&logFrom, "from", "", "Inclusive start date")
	logCmd.Flags().StringVar(&logTo, "to", "", "Inclusive end date")
	logCmd.Flags().IntVar(&logLimit, "limit", 14, "Max rows (0 for all)")
	rollupCmd.Flags().StringVar(&rollupDate, "date", "", "Date YYYY-MM-DD (default today)")
	rollupCmd.Flags().BoolVar(&rollupOverwrite, "overwrite", false, "Rebuild an existing row")
	syncCmd.Flags().StringVar(&syncDate, "date", "", "Only this date")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Also re-synthesize dates whose events are already applied")
}

func dateOrToday(a *app.App, date string) string {
	if date != "" {
		return date
	}
	return a.Dates.SuggestedLogDate(nowFunc())
}

func printTotals(out io.Writer, n domain.Nutrients) {
	fmt.Fprintf(out, "Calories: %.0f kcal\n", n.Calories)
	fmt.Fprintf(out, "Macros: P %.1fg | C %.1fg | F %.1fg\n", n.ProteinG, n.CarbsG, n.FatG)
	for _, field := range domain.MicroFields {
		v := *n.Micro(field)
		if v == nil {
			fmt.Fprintf(out, "%s: unknown\n", field)
			continue
		}
		fmt.Fprintf(out, "%s: %.1f\n", field, *v)
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
