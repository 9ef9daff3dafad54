// Package testutil builds portal-like timetable pages for tests.
package testutil

import (
	"strings"

	"iuhsched/internal/model"
)

// Row renders one shift row (label plus up to seven day cells).
func Row(label string, days ...string) string {
	var b strings.Builder
	b.WriteString("<tr><td>" + label + "</td>")
	for i := 0; i < model.DaysPerWeek; i++ {
		cell := ""
		if i < len(days) {
			cell = days[i]
		}
		b.WriteString("<td>" + cell + "</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

// Table renders a timetable with the given header cells (day names when nil)
// and rows. A filler row keeps the table above the extractor's size floor
// without adding data.
func Table(header []string, rows ...string) string {
	if header == nil {
		header = model.DayNames[:]
	}
	var b strings.Builder
	b.WriteString(`<table class="fl-table"><thead><tr><th>Ca học</th>`)
	for _, h := range header {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`<tr><td colspan="8">` + strings.Repeat("-", 1200) + "</td></tr>")
	b.WriteString("</tbody></table>")
	return b.String()
}

// DatedHeader returns header cells "Thứ 2<br>dd/mm/yyyy" ... for dates.
func DatedHeader(dates ...string) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = model.DayNames[i%model.DaysPerWeek] + "<br>" + d
	}
	return out
}

// Page wraps body in a document long enough to pass the page size check.
func Page(body string) string {
	return "<html><head><title>Lịch theo tuần</title><!--" + strings.Repeat("p", 5000) +
		"--></head><body>" + body + "</body></html>"
}
