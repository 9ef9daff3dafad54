// Package extract turns the portal's weekly timetable page into session
// entries. The page has no documented grammar; the heuristics here follow the
// layout observed on the portal and degrade to fewer (or zero) entries when
// the layout is not recognised.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/markup"
	"iuhsched/internal/model"
)

const (
	minPageLen    = 5000
	minTableLen   = 1000
	minCellLen    = 15
	maxRawLen     = 200
	maxSubjectLen = 60

	// PlaceholderSubject is used when a cell has sittings but no usable name.
	PlaceholderSubject = "Môn học"
)

var errorSignatures = []string{
	"<title>404", "<title>500", "page not found", "server error", "503 service",
}

var tablePeriodWords = []string{"đứ", "sáng", "chiều"}

var (
	sittingRe = regexp.MustCompile(`Tiết\s*:\s*(\d+)\s*[-–]\s*(\d+)`)
	roomRe    = regexp.MustCompile(`Phòng\s*:\s*([A-Z0-9][A-Za-z0-9.]*)`)
)

// Extract parses page and returns the session entries in row, day, sitting
// order. dates may be nil; when present, entries get the date of their day.
// Extract never fails: unrecognised input yields no entries.
func Extract(page string, dates model.WeekDateMap) (entries []model.SessionEntry) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("extract: recovered from parse fault", fmt.Errorf("%v", r))
			entries = nil
		}
	}()

	if IsErrorPage(page) {
		appLog.Debug("extract: page rejected", "len", len(page))
		return nil
	}

	doc := markup.Parse(page)
	table := findTimetable(doc)
	if table == nil {
		appLog.Debug("extract: no timetable found", "len", len(page))
		return nil
	}

	for _, row := range markup.Rows(table) {
		cells, period, ok := periodRow(row)
		if !ok {
			continue
		}
		for day := 0; day < model.DaysPerWeek; day++ {
			idx := day + 1
			if idx >= len(cells) {
				break
			}
			entries = append(entries, extractCell(cells[idx], day, period, dates)...)
		}
	}

	appLog.Debug("extract: completed", "entries", len(entries))
	return entries
}

// IsErrorPage reports whether page is too short or looks like an error page.
func IsErrorPage(page string) bool {
	if len(page) < minPageLen {
		return true
	}
	lower := strings.ToLower(page)
	for _, sig := range errorSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// findTimetable prefers the first large table with shift rows of its own,
// which finds a timetable nested inside a layout table. Otherwise it picks the
// first table if it is large enough, then the first large table that mentions
// the period words.
func findTimetable(doc *html.Node) *html.Node {
	tables := markup.FindAll(doc, atom.Table)
	if len(tables) == 0 {
		return nil
	}
	for _, t := range tables {
		if len(markup.InnerMarkup(t)) >= minTableLen && hasPeriodRow(t) {
			return t
		}
	}
	if len(markup.InnerMarkup(tables[0])) >= minTableLen {
		return tables[0]
	}
	for _, t := range tables {
		inner := markup.InnerMarkup(t)
		if len(inner) <= minTableLen {
			continue
		}
		lower := strings.ToLower(inner)
		for _, w := range tablePeriodWords {
			if strings.Contains(lower, w) {
				return t
			}
		}
	}
	return nil
}

func hasPeriodRow(table *html.Node) bool {
	for _, row := range markup.Rows(table) {
		if _, _, ok := periodRow(row); ok {
			return true
		}
	}
	return false
}

// periodRow returns the data cells of row and its period when the first of
// at least two cells carries a shift label.
func periodRow(row *html.Node) ([]*html.Node, int, bool) {
	cells := markup.Cells(row, atom.Td)
	if len(cells) < 2 {
		return nil, -1, false
	}
	period, ok := classifyPeriod(markup.Text(cells[0]))
	if !ok {
		return nil, -1, false
	}
	return cells, period, true
}

func classifyPeriod(label string) (int, bool) {
	switch {
	case strings.Contains(label, "Sáng"):
		return model.PeriodMorning, true
	case strings.Contains(label, "Chiều"):
		return model.PeriodAfternoon, true
	case strings.Contains(label, "Tối"):
		return model.PeriodEvening, true
	}
	return -1, false
}

func extractCell(cell *html.Node, day, period int, dates model.WeekDateMap) []model.SessionEntry {
	if utf8.RuneCountInString(markup.Text(cell)) < minCellLen {
		return nil
	}

	lines := markup.Lines(cell)
	return buildEntries(lines, day, period, dates)
}

// buildEntries pairs sitting markers with subject names and rooms by position.
func buildEntries(lines []string, day, period int, dates model.WeekDateMap) []model.SessionEntry {
	joined := strings.Join(lines, "\n")
	sittings := sittingRe.FindAllStringSubmatch(joined, -1)
	if len(sittings) == 0 {
		return nil
	}
	rooms := roomRe.FindAllStringSubmatch(joined, -1)
	subjects := subjectCandidates(lines)

	out := make([]model.SessionEntry, 0, len(sittings))
	for i, m := range sittings {
		tiet := m[1] + "-" + m[2]

		subject := PlaceholderSubject
		switch {
		case i < len(subjects):
			subject = subjects[i]
		case len(subjects) > 0:
			subject = subjects[len(subjects)-1]
		}

		entry := model.SessionEntry{
			Raw:     truncate(subject+" Tiết:"+tiet, maxRawLen),
			Day:     day,
			Period:  period,
			Subject: truncate(subject, maxSubjectLen),
			Tiet:    tiet,
		}
		if date, ok := dates[day]; ok && date != "" {
			entry.Date = date
		}
		if i < len(rooms) {
			entry.Room = rooms[i][1]
		}
		out = append(out, entry)
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
