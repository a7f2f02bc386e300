package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"example.com/habittracker/internal/analytics"
	"example.com/habittracker/internal/domain"
)

func newWeeklyCmd(app *App) *cobra.Command {
	var owner, nowFlag string
	var offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Print an owner's seven-day activity report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("offset") {
				return fmt.Errorf("%w: --offset (minutes east of UTC) is required", domain.ErrInvalidInput)
			}

			now := time.Now().UTC()
			if nowFlag != "" {
				parsed, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now must be RFC 3339: %w", err)
				}
				now = parsed
			}

			service := domain.NewService(app.Activities, domain.WithClock(func() time.Time { return now }))
			report, err := service.WeeklySummary(cmd.Context(), owner, &offset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					TzOffset int                        `json:"tzOffset"`
					Days     []analytics.DailyAggregate `json:"days"`
					Summary  analytics.Summary          `json:"summary"`
				}{offset, report.Days, report.Summary})
			}
			return renderWeekly(out, report)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner (user) ID")
	cmd.Flags().IntVar(&offset, "offset", 0, "Observer UTC offset in minutes, positive east")
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate the report at this RFC 3339 instant")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func renderWeekly(out io.Writer, report *domain.WeeklyReport) error {
	summary := report.Summary
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	headers := append([]string{"DAY", "DATE"}, summary.CategoryOrder...)
	headers = append(headers, "TOTAL")
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, day := range report.Days {
		row := []string{day.DayLabel, day.Date}
		for _, name := range summary.CategoryOrder {
			row = append(row, fmt.Sprintf("%d", day.Categories[name]))
		}
		row = append(row, fmt.Sprintf("%d", day.TotalDayMinutes))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d min across %d entries (avg %d min)\n",
		summary.TotalMinutes, summary.TotalEntries, summary.AverageSessionMinutes)
	if summary.BestDay != nil {
		fmt.Fprintf(out, "Best day: %s %s (%d min)\n", summary.BestDay.DayLabel, summary.BestDay.DateLabel, summary.BestDay.Minutes)
	}
	if summary.TopCategory != nil {
		fmt.Fprintf(out, "Top category: %s (%d min)\n", summary.TopCategory.Name, summary.TopCategory.Minutes)
	}
	return nil
}
