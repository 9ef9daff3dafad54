// Package view projects stored sessions and tasks onto the day/period cells
// of a displayed week.
package view

import (
	"sort"
	"strconv"
	"strings"

	"iuhsched/internal/model"
)

// middayMinutes orders items whose start time is unknown.
const middayMinutes = 12 * 60

// Kind distinguishes the two item types shown in a cell.
type Kind string

const (
	KindSession Kind = "schedule"
	KindTask    Kind = "task"
)

// Item is one entry displayed in a cell. Exactly one of Session or Task is set.
type Item struct {
	Kind    Kind                `json:"type"`
	Start   int                 `json:"start_minutes"`
	Session *model.SessionEntry `json:"session,omitempty"`
	Task    *model.TaskEntry    `json:"task,omitempty"`
}

// ItemsForCell returns the sessions and tasks at (day, period), ordered by
// start time. With a date map, sessions must fall on the same day and month
// as the target cell; the year is ignored. Tasks are only excluded when both
// dates are known and differ.
func ItemsForCell(sessions []model.SessionEntry, tasks []model.TaskEntry, day, period int, dates model.WeekDateMap) []Item {
	var target string
	if len(dates) > 0 {
		target = model.DayMonth(dates[day])
	}

	var items []Item
	for i := range sessions {
		s := sessions[i]
		if s.Day != day || s.Period != period {
			continue
		}
		if len(dates) > 0 && model.DayMonth(s.Date) != target {
			continue
		}
		items = append(items, Item{Kind: KindSession, Start: SessionStart(s.Tiet), Session: &s})
	}
	for i := range tasks {
		t := tasks[i]
		if t.Day != day || t.Period != period {
			continue
		}
		if len(dates) > 0 {
			if dm := model.DayMonth(t.Date); dm != "" && target != "" && dm != target {
				continue
			}
		}
		items = append(items, Item{Kind: KindTask, Start: TaskStart(t.Time), Task: &t})
	}

	sort.SliceStable(items, func(a, b int) bool { return items[a].Start < items[b].Start })
	return items
}

// Grid returns the items of every cell of a week, indexed [period][day].
func Grid(sessions []model.SessionEntry, tasks []model.TaskEntry, dates model.WeekDateMap) [][][]Item {
	grid := make([][][]Item, len(model.PeriodNames))
	for p := range grid {
		grid[p] = make([][]Item, model.DaysPerWeek)
		for d := 0; d < model.DaysPerWeek; d++ {
			grid[p][d] = ItemsForCell(sessions, tasks, d, p, dates)
		}
	}
	return grid
}

// SessionStart maps a sitting range to its start, in minutes after midnight.
func SessionStart(tiet string) int {
	if s, ok := model.Sittings[tiet]; ok {
		return s.StartMinutes()
	}
	return middayMinutes
}

// TaskStart parses an "HH:MM" task time into minutes after midnight. Fields
// past the minutes, such as seconds, are ignored.
func TaskStart(hhmm string) int {
	parts := strings.Split(hhmm, ":")
	if len(parts) < 2 {
		return middayMinutes
	}
	h, m := parts[0], parts[1]
	hour, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return middayMinutes
	}
	minute, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return middayMinutes
	}
	return hour*60 + minute
}
