package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iuhsched/internal/model"
	"iuhsched/internal/testutil"
)

func TestExtractSingleSession(t *testing.T) {
	html := testutil.Page(testutil.Table(nil,
		testutil.Row("Sáng", "Nhập môn Công nghệ thông tin\nTiết: 1-3\nPhòng: A1.1"),
	))

	entries := Extract(html, nil)

	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, 0, got.Day)
	assert.Equal(t, model.PeriodMorning, got.Period)
	assert.Equal(t, "1-3", got.Tiet)
	assert.Equal(t, "A1.1", got.Room)
	assert.Equal(t, "Nhập môn Công nghệ thông tin", got.Subject)
	assert.Equal(t, "Nhập môn Công nghệ thông tin Tiết:1-3", got.Raw)
	assert.Empty(t, got.Date)
}

func TestExtractPairsSubjectsAndRoomsByPosition(t *testing.T) {
	cell := "<p>Lập trình hướng đối tượng</p><p>DHKTPM17A - 420300</p><p>Tiết: 1-3</p>" +
		"<p>Phòng: B2.05</p><p>GV: Nguyễn Văn A</p>" +
		"<p>Cấu trúc dữ liệu và giải thuật</p><p>Tiết: 4-6</p><p>Phòng: X10.01</p>"
	html := testutil.Page(testutil.Table(nil, testutil.Row("Chiều", "", "", cell)))

	entries := Extract(html, nil)

	require.Len(t, entries, 2)
	assert.Equal(t, "Lập trình hướng đối tượng", entries[0].Subject)
	assert.Equal(t, "1-3", entries[0].Tiet)
	assert.Equal(t, "B2.05", entries[0].Room)
	assert.Equal(t, "Cấu trúc dữ liệu và giải thuật", entries[1].Subject)
	assert.Equal(t, "4-6", entries[1].Tiet)
	assert.Equal(t, "X10.01", entries[1].Room)
	for _, e := range entries {
		assert.Equal(t, 2, e.Day)
		assert.Equal(t, model.PeriodAfternoon, e.Period)
	}
}

func TestExtractExcessSittingsReuseLastSubject(t *testing.T) {
	html := testutil.Page(testutil.Table(nil, testutil.Row("Tối", "Kiểm thử phần mềm<br>Tiết: 7-9<br>Tiết: 10 – 12")))

	entries := Extract(html, nil)

	require.Len(t, entries, 2)
	assert.Equal(t, "Kiểm thử phần mềm", entries[1].Subject)
	assert.Equal(t, "10-12", entries[1].Tiet)
	assert.Equal(t, model.PeriodEvening, entries[1].Period)
	assert.Empty(t, entries[1].Room)
}

func TestExtractPlaceholderWhenNoSubject(t *testing.T) {
	html := testutil.Page(testutil.Table(nil, testutil.Row("Sáng", "DHKTPM17A<br>Tiết: 1-3<br>Phòng: A1.1")))

	entries := Extract(html, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, PlaceholderSubject, entries[0].Subject)
}

func TestExtractAppliesWeekDates(t *testing.T) {
	dates := model.WeekDateMap{
		0: "19/10/2026", 1: "20/10/2026", 2: "21/10/2026", 3: "22/10/2026",
		4: "23/10/2026", 5: "24/10/2026", 6: "25/10/2026",
	}
	html := testutil.Page(testutil.Table(nil, testutil.Row("Sáng", "", "Nhập môn Công nghệ thông tin\nTiết: 1-3")))

	entries := Extract(html, dates)

	require.Len(t, entries, 1)
	assert.Equal(t, "20/10/2026", entries[0].Date)
}

func TestExtractSkipsThinAndMarkerlessCells(t *testing.T) {
	html := testutil.Page(testutil.Table(nil,
		// 14 characters, no sitting marker.
		testutil.Row("Sáng", "Nghỉ học bù 01"),
		// Long enough but still without a marker.
		testutil.Row("Chiều", "Thi cuối kỳ môn Cơ sở dữ liệu"),
		testutil.Row("Ca đặc biệt", "Nhập môn Công nghệ thông tin\nTiết: 1-3"),
	))

	assert.Empty(t, Extract(html, nil))
}

func TestExtractRejectsShortAndErrorPages(t *testing.T) {
	table := testutil.Table(nil, testutil.Row("Sáng", "Nhập môn Công nghệ thông tin\nTiết: 1-3"))

	assert.Empty(t, Extract(table, nil), "short page")
	assert.Empty(t, Extract(testutil.Page("<h1>Page not found</h1>"+table), nil), "error page")
	assert.Empty(t, Extract(testutil.Page("<div>no table here</div>"), nil), "no table")
	assert.Empty(t, Extract("", nil))
}

func TestExtractFallsBackToTimetableMentioningPeriods(t *testing.T) {
	body := `<table><tr><td>menu</td><td>logout</td></tr></table>` +
		testutil.Table(nil, testutil.Row("Sáng", "Nhập môn Công nghệ thông tin\nTiết: 1-3"))

	entries := Extract(testutil.Page(body), nil)

	require.Len(t, entries, 1)
	assert.Equal(t, "1-3", entries[0].Tiet)
}

func TestExtractTimetableNestedInLayoutTable(t *testing.T) {
	body := `<table class="layout"><tr><td>` +
		testutil.Table(nil, testutil.Row("Sáng", "Nhập môn Công nghệ thông tin\nTiết: 1-3\nPhòng: A1.1")) +
		`</td></tr></table>`

	entries := Extract(testutil.Page(body), nil)

	require.Len(t, entries, 1)
	assert.Equal(t, "1-3", entries[0].Tiet)
	assert.Equal(t, "A1.1", entries[0].Room)
}

func TestExtractNoFallbackForSmallTablesOnly(t *testing.T) {
	body := `<table><tr><td>Sáng</td><td>Tiết: 1-3</td></tr></table>`

	assert.Empty(t, Extract(testutil.Page(body), nil))
}

func TestExtractSurvivesMalformedMarkup(t *testing.T) {
	html := testutil.Page(strings.Replace(
		testutil.Table(nil, testutil.Row("Sáng", "<b><i>Nhập môn Công nghệ thông tin\nTiết: 1-3")),
		"</tbody>", "", 1))

	entries := Extract(html, nil)

	require.NotEmpty(t, entries)
	assert.Equal(t, "Nhập môn Công nghệ thông tin", entries[0].Subject)
}

func TestExtractTruncatesLongSubjects(t *testing.T) {
	long := strings.Repeat("Phát triển ứng dụng ", 5)
	html := testutil.Page(testutil.Table(nil, testutil.Row("Sáng", long+"\nTiết: 1-3")))

	entries := Extract(html, nil)

	require.Len(t, entries, 1)
	assert.Len(t, []rune(entries[0].Subject), maxSubjectLen)
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"DHKTPM17A", "course-code"},
		{"420300 - 01", "numeric"},
		{"Lab", "too-short"},
		{"GV: Nguyễn Văn A", "label"},
		{"Giảng viên: Trần Thị B", "label"},
		{"A1.1 Cơ sở chính", "section-code"},
		{"Đang Cập Nhật Lại", "short-caps"},
		{"Cấu Trúc Dữ Liệu", ""},
		{"Nhập môn Công nghệ thông tin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyLine(tt.line))
		})
	}
}
