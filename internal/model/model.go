package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Periods of a day as laid out by the portal timetable.
const (
	PeriodMorning   = 0 // Sáng
	PeriodAfternoon = 1 // Chiều
	PeriodEvening   = 2 // Tối
)

// DaysPerWeek is the number of day columns in a timetable week (Monday first).
const DaysPerWeek = 7

// DateLayout is the dd/mm/yyyy layout used for every stored date.
const DateLayout = "02/01/2006"

// SessionEntry represents a single scheduled class occurrence extracted from
// the portal. Entries are never modified after extraction.
type SessionEntry struct {
	Raw     string `json:"raw"`
	Day     int    `json:"day"`
	Period  int    `json:"period"`
	Subject string `json:"subject"`
	// Tiet is the sitting range, e.g. "1-3".
	Tiet string `json:"tiet"`
	Room string `json:"room,omitempty"`
	// Date is dd/mm/yyyy, empty when the week dates were unknown.
	Date string `json:"date,omitempty"`
}

// Key is the identity used to de-duplicate session entries.
type Key struct {
	Date    string
	Subject string
	Tiet    string
	Day     int
}

// Key returns the identity key of the entry.
func (s SessionEntry) Key() Key {
	return Key{Date: s.Date, Subject: s.Subject, Tiet: s.Tiet, Day: s.Day}
}

// TaskEntry is a user created item shown alongside sessions.
type TaskEntry struct {
	ID       TaskID  `json:"id"`
	Title    string  `json:"title"`
	Day      int     `json:"day"`
	Period   int     `json:"period"`
	Note     string  `json:"note"`
	Time     string  `json:"time"`
	Deadline *string `json:"deadline"`
	Done     bool    `json:"done"`
	Created  string  `json:"created"`
	Date     string  `json:"date"`
}

// TaskID identifies a task. Older data files stored ids as float timestamps,
// so decoding accepts both JSON numbers and strings.
type TaskID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = TaskID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// WeekDateMap maps a day index (0 = Monday) to its dd/mm/yyyy date.
type WeekDateMap map[int]string

// Complete reports whether all seven days carry a date.
func (m WeekDateMap) Complete() bool {
	for d := 0; d < DaysPerWeek; d++ {
		if m[d] == "" {
			return false
		}
	}
	return true
}

// ParseDate parses a dd/mm/yyyy string in loc (time.Local if nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes out-of-range values; reject those instead.
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// FormatDate formats t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayMonth returns the dd/mm prefix of a stored date, or "" if too short.
func DayMonth(date string) string {
	if len(date) < 5 {
		return ""
	}
	return date[:5]
}

// MondayOf returns midnight of the Monday of the week containing t.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -offset)
}

// Sitting describes the clock window of a sitting range.
type Sitting struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// StartMinutes returns minutes after midnight at which the sitting starts.
func (s Sitting) StartMinutes() int {
	return s.StartHour*60 + s.StartMinute
}

// Sittings maps the known sitting ranges to their clock times.
var Sittings = map[string]Sitting{
	"1-3":   {6, 30, 9, 0},
	"4-6":   {9, 0, 11, 30},
	"7-9":   {12, 30, 15, 0},
	"10-12": {15, 0, 17, 30},
}

// PeriodWindows holds the clock window of each period.
var PeriodWindows = map[int]Sitting{
	PeriodMorning:   {6, 30, 12, 0},
	PeriodAfternoon: {12, 30, 17, 30},
	PeriodEvening:   {18, 0, 22, 0},
}

// DayNames are the Vietnamese column headers, Monday first.
var DayNames = [DaysPerWeek]string{"Thứ 2", "Thứ 3", "Thứ 4", "Thứ 5", "Thứ 6", "Thứ 7", "CN"}

// PeriodNames are the row labels of the timetable.
var PeriodNames = [3]string{"Sáng", "Chiều", "Tối"}
