// Package ics renders stored sessions and tasks as an iCalendar feed so the
// timetable can be subscribed to from a calendar app.
package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/model"
	"iuhsched/internal/view"
)

const (
	productID = "-//iuhsched//timetable//VI"
	uidDomain = "@iuhsched"

	// taskDuration is the length given to task events, which only carry a
	// start time.
	taskDuration = time.Hour
)

// Options controls the exported calendar.
type Options struct {
	Name     string
	Location *time.Location
	// Now stamps DTSTAMP; defaults to time.Now.
	Now func() time.Time
}

// Export builds a calendar with one event per dated session and task.
// Entries without a parseable date are skipped.
func Export(sessions []model.SessionEntry, tasks []model.TaskEntry, opts Options) *ical.Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	skipped := 0
	for _, s := range sessions {
		start, end, ok := sessionWindow(s, loc)
		if !ok {
			skipped++
			continue
		}
		ev := cal.AddEvent(sessionUID(s))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(s.Subject)
		if s.Room != "" {
			ev.SetLocation(s.Room)
		}
		ev.SetDescription("Tiết " + s.Tiet)
	}

	for _, t := range tasks {
		day, err := model.ParseDate(t.Date, loc)
		if err != nil {
			skipped++
			continue
		}
		start := day.Add(time.Duration(view.TaskStart(t.Time)) * time.Minute)
		ev := cal.AddEvent(string(t.ID) + uidDomain)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(taskDuration))
		summary := t.Title
		if t.Done {
			summary = "✓ " + summary
		}
		ev.SetSummary(summary)
		if desc := taskDescription(t); desc != "" {
			ev.SetDescription(desc)
		}
	}

	if skipped > 0 {
		appLog.Debug("ics export skipped undated entries", "count", skipped)
	}
	return cal
}

// Serialize is Export followed by rendering to text.
func Serialize(sessions []model.SessionEntry, tasks []model.TaskEntry, opts Options) string {
	return Export(sessions, tasks, opts).Serialize()
}

// sessionWindow returns the clock window of s on its date: the sitting
// times when the range is known, otherwise the whole period.
func sessionWindow(s model.SessionEntry, loc *time.Location) (time.Time, time.Time, bool) {
	day, err := model.ParseDate(s.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	win, ok := model.Sittings[s.Tiet]
	if !ok {
		win, ok = model.PeriodWindows[s.Period]
		if !ok {
			return time.Time{}, time.Time{}, false
		}
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), win.StartHour, win.StartMinute, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), win.EndHour, win.EndMinute, 0, 0, loc)
	return start, end, true
}

// sessionUID derives a stable UID from the identity key, so re-exports
// update events in place instead of duplicating them.
func sessionUID(s model.SessionEntry) string {
	k := s.Key()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", k.Date, k.Subject, k.Tiet, k.Day)))
	return hex.EncodeToString(sum[:12]) + uidDomain
}

func taskDescription(t model.TaskEntry) string {
	var parts []string
	if t.Note != "" {
		parts = append(parts, t.Note)
	}
	if t.Deadline != nil && *t.Deadline != "" {
		parts = append(parts, "Hạn: "+*t.Deadline)
	}
	return strings.Join(parts, "\n")
}
