package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"iuhsched/internal/engine"
	"iuhsched/internal/model"
	"iuhsched/internal/tasks"
)

func newTaskCommand(ctx context.Context, app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks shown next to the timetable.",
	}

	cmd.AddCommand(
		newTaskAddCommand(ctx, app),
		newTaskListCommand(ctx, app),
		newTaskDoneCommand(ctx, app),
		newTaskRemoveCommand(ctx, app),
		newTaskEditCommand(ctx, app),
	)
	return cmd
}

func newTaskAddCommand(ctx context.Context, app *App) *cobra.Command {
	var (
		day      int
		period   string
		timeFlag string
		date     string
		note     string
		deadline string
	)

	cmd := &cobra.Command{
		Use:   "add <title ...>",
		Short: "Add a task to a day and period of the current week.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			p, err := parsePeriod(period)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("day") {
				day = dayIndex(app.now())
			}
			in := tasks.NewTask{
				Title:  strings.Join(args, " "),
				Day:    day,
				Period: p,
				Note:   note,
				Time:   timeFlag,
				Date:   date,
			}
			if deadline != "" {
				in.Deadline = &deadline
			}
			task, err := eng.CreateTask(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", formatTask(task))
			return nil
		},
	}

	cmd.Flags().IntVar(&day, "day", 0, "Day index, 0 = Monday (default: today)")
	cmd.Flags().StringVar(&period, "period", "sang", "Period: sang, chieu, toi or 0-2")
	cmd.Flags().StringVar(&timeFlag, "time", "", "Time in HH:MM (default: "+tasks.DefaultTime+")")
	cmd.Flags().StringVar(&date, "date", "", "Date in dd/mm/yyyy (default: the day of the current week)")
	cmd.Flags().StringVar(&note, "note", "", "Free text note")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline text")
	return cmd
}

func newTaskListCommand(ctx context.Context, app *App) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			list, err := eng.Tasks(ctx)
			if err != nil {
				return err
			}
			shown := 0
			for _, t := range list {
				if pending && t.Done {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatTask(t))
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only show tasks that are not done")
	return cmd
}

func newTaskDoneCommand(ctx context.Context, app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the done flag of a task.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			id, err := resolveTaskID(ctx, eng, args[0])
			if err != nil {
				return err
			}
			task, err := eng.ToggleTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s\n", formatTask(task))
			return nil
		},
	}
}

func newTaskRemoveCommand(ctx context.Context, app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			id, err := resolveTaskID(ctx, eng, args[0])
			if err != nil {
				return err
			}
			if err := eng.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", shortID(id))
			return nil
		},
	}
}

func newTaskEditCommand(ctx context.Context, app *App) *cobra.Command {
	var (
		title    string
		day      int
		period   string
		timeFlag string
		date     string
		note     string
		deadline string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task; only the given flags are applied.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			id, err := resolveTaskID(ctx, eng, args[0])
			if err != nil {
				return err
			}

			var p tasks.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("day") {
				p.Day = &day
			}
			if flags.Changed("period") {
				n, err := parsePeriod(period)
				if err != nil {
					return err
				}
				p.Period = &n
			}
			if flags.Changed("time") {
				p.Time = &timeFlag
			}
			if flags.Changed("date") {
				p.Date = &date
			}
			if flags.Changed("note") {
				p.Note = &note
			}
			if flags.Changed("deadline") {
				p.Deadline = &deadline
			}

			task, err := eng.UpdateTask(ctx, id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", formatTask(task))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().IntVar(&day, "day", 0, "New day index, 0 = Monday")
	cmd.Flags().StringVar(&period, "period", "", "New period: sang, chieu, toi or 0-2")
	cmd.Flags().StringVar(&timeFlag, "time", "", "New time in HH:MM")
	cmd.Flags().StringVar(&date, "date", "", "New date in dd/mm/yyyy")
	cmd.Flags().StringVar(&note, "note", "", "New note")
	cmd.Flags().StringVar(&deadline, "deadline", "", "New deadline text")
	return cmd
}

// resolveTaskID accepts a full id or an unambiguous prefix of one.
func resolveTaskID(ctx context.Context, eng *engine.Engine, arg string) (model.TaskID, error) {
	list, err := eng.Tasks(ctx)
	if err != nil {
		return "", err
	}
	var match model.TaskID
	for _, t := range list {
		if string(t.ID) == arg {
			return t.ID, nil
		}
		if strings.HasPrefix(string(t.ID), arg) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, arg)
	}
	return match, nil
}

// parsePeriod accepts a period index or its name, with or without
// Vietnamese diacritics.
func parsePeriod(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sang", "sáng", "morning":
		return model.PeriodMorning, nil
	case "chieu", "chiều", "afternoon":
		return model.PeriodAfternoon, nil
	case "toi", "tối", "evening":
		return model.PeriodEvening, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= len(model.PeriodNames) {
		return 0, fmt.Errorf("invalid period %q", s)
	}
	return n, nil
}

// dayIndex converts a weekday to a Monday-first index.
func dayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func formatTask(t model.TaskEntry) string {
	return fmt.Sprintf("%s %s %s %s %-5s %s", checkbox(t.Done), shortID(t.ID), t.Date,
		model.PeriodNames[clampPeriod(t.Period)], t.Time, t.Title)
}

func clampPeriod(p int) int {
	if p < 0 || p >= len(model.PeriodNames) {
		return 0
	}
	return p
}
