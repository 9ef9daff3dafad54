// Package weekdates recovers the seven calendar dates of a displayed week,
// either from the timetable header or from a week offset relative to now.
package weekdates

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"
	"golang.org/x/net/html/atom"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/markup"
	"iuhsched/internal/model"
)

// headerScanRows bounds how many rows are inspected for a date header.
const headerScanRows = 5

var (
	fullDateRe  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	shortDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
)

// Source tells where a resolved week came from.
type Source int

const (
	SourceHeader Source = iota
	SourceOffset
)

func (s Source) String() string {
	if s == SourceHeader {
		return "header"
	}
	return "offset"
}

// Resolve returns the header dates of page when present, otherwise the dates
// of the week offset weeks away from now.
func Resolve(page string, now time.Time, offset int) (model.WeekDateMap, Source) {
	if dates, ok := FromMarkup(page, now); ok {
		return dates, SourceHeader
	}
	appLog.Debug("weekdates: no header found, using offset", "offset", offset)
	return FromOffset(now, offset), SourceOffset
}

// FromMarkup looks for a header row with at least seven <th> cells among the
// first rows of page. The first cell is the shift label; the following seven
// carry "dd/mm/yyyy" or "dd/mm" dates. ok is false when no row yields a full
// week.
func FromMarkup(page string, now time.Time) (dates model.WeekDateMap, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("weekdates: recovered from parse fault", fmt.Errorf("%v", r))
			dates, ok = nil, false
		}
	}()

	doc := markup.Parse(page)
	if doc == nil {
		return nil, false
	}
	rows := markup.FindAll(doc, atom.Tr)
	if len(rows) > headerScanRows {
		rows = rows[:headerScanRows]
	}

	for _, row := range rows {
		cells := markup.Cells(row, atom.Th)
		if len(cells) < model.DaysPerWeek {
			continue
		}
		found := model.WeekDateMap{}
		for idx, cell := range cells {
			if idx == 0 || idx > model.DaysPerWeek {
				continue
			}
			if date, ok := parseHeaderDate(markup.Text(cell), now); ok {
				found[idx-1] = date
			}
		}
		if found.Complete() {
			return found, true
		}
	}
	return nil, false
}

// parseHeaderDate extracts a date from a header cell such as "Thứ 2 26/01".
// Without a year, the year of now is used, moved forward when the header
// month is earlier than the current month late in the year.
func parseHeaderDate(text string, now time.Time) (string, bool) {
	var day, month, year int
	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := shortDateRe.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year = now.Year()
		if month < int(now.Month()) && now.Month() >= time.October {
			year++
		}
	} else {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%d", day, month, year), true
}

// FromOffset returns the Monday-first week that lies offset weeks from the
// week containing now. The map is empty only if the day sequence cannot be
// built, which is logged.
func FromOffset(now time.Time, offset int) model.WeekDateMap {
	monday := model.MondayOf(now).AddDate(0, 0, 7*offset)
	dates := model.WeekDateMap{}
	days, err := weekDays(monday)
	if err != nil {
		appLog.Error("weekdates: cannot expand week", err, "monday", model.FormatDate(monday))
		return dates
	}
	for i, d := range days {
		dates[i] = model.FormatDate(d)
	}
	return dates
}

// weekDays expands monday into seven consecutive days with a daily rule,
// reported in monday's location.
func weekDays(monday time.Time) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   model.DaysPerWeek,
		Dtstart: monday,
	})
	if err != nil {
		return nil, fmt.Errorf("daily rule from %s: %w", model.FormatDate(monday), err)
	}
	days := r.All()
	for i := range days {
		days[i] = days[i].In(monday.Location())
	}
	return days, nil
}

// Label returns the display caption of a week: "Tuần này" for the current
// week, otherwise the Monday bucket name.
func Label(now time.Time, offset int) string {
	if offset == 0 {
		return "Tuần này"
	}
	return "tuan" + FromOffset(now, offset)[0]
}
