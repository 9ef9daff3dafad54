package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"iuhsched/internal/engine"
	"iuhsched/internal/model"
	"iuhsched/internal/view"
)

func newWeekCommand(ctx context.Context, app *App) *cobra.Command {
	var offset int

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the sessions and tasks of a week.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			week, err := eng.Week(ctx, offset)
			if err != nil {
				return err
			}
			printWeek(cmd.OutOrStdout(), week)
			return nil
		},
	}

	cmd.Flags().IntVarP(&offset, "offset", "o", 0, "Week relative to the current one (-1 previous, 1 next)")
	return cmd
}

func printWeek(w io.Writer, week engine.Week) {
	fmt.Fprintf(w, "%s (%s - %s)\n", week.Label, week.Dates[0], week.Dates[model.DaysPerWeek-1])
	empty := true
	for day := 0; day < model.DaysPerWeek; day++ {
		var lines []string
		for period := range model.PeriodNames {
			for _, item := range week.Cells[period][day] {
				lines = append(lines, fmt.Sprintf("  %-6s %s", model.PeriodNames[period], formatItem(item)))
			}
		}
		if len(lines) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(w, "\n%s %s\n", model.DayNames[day], week.Dates[day])
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}
	if empty {
		fmt.Fprintln(w, "No sessions or tasks.")
	}
}

func formatItem(item view.Item) string {
	clock := fmt.Sprintf("%02d:%02d", item.Start/60, item.Start%60)
	switch {
	case item.Session != nil:
		s := item.Session
		line := fmt.Sprintf("%s %s [%s]", clock, s.Subject, s.Tiet)
		if s.Room != "" {
			line += " @" + s.Room
		}
		return line
	case item.Task != nil:
		return fmt.Sprintf("%s %s %s (%s)", clock, checkbox(item.Task.Done), item.Task.Title, shortID(item.Task.ID))
	}
	return clock
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func shortID(id model.TaskID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
