package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iuhsched/internal/model"
)

var ict = time.FixedZone("ICT", 7*3600)

func fixedNow() time.Time { return time.Date(2026, time.October, 18, 12, 0, 0, 0, ict) }

func parse(t *testing.T, out string) []*ical.VEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	return cal.Events()
}

func prop(ev *ical.VEvent, p ical.ComponentProperty) string {
	if v := ev.GetProperty(p); v != nil {
		return v.Value
	}
	return ""
}

func TestExportSessionUsesSittingTimes(t *testing.T) {
	sessions := []model.SessionEntry{{
		Day: 0, Period: model.PeriodMorning, Subject: "Cấu trúc dữ liệu",
		Tiet: "1-3", Room: "A1.1", Date: "19/10/2026",
	}}

	events := parse(t, Serialize(sessions, nil, Options{Name: "Lịch học", Location: ict, Now: fixedNow}))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "Cấu trúc dữ liệu", prop(ev, ical.ComponentPropertySummary))
	assert.Equal(t, "A1.1", prop(ev, ical.ComponentPropertyLocation))
	assert.Equal(t, "20261018T233000Z", prop(ev, ical.ComponentPropertyDtStart))
	assert.Equal(t, "20261019T020000Z", prop(ev, ical.ComponentPropertyDtEnd))
	assert.True(t, strings.HasSuffix(prop(ev, ical.ComponentPropertyUniqueId), uidDomain))
}

func TestExportUnknownSittingUsesPeriodWindow(t *testing.T) {
	sessions := []model.SessionEntry{{
		Period: model.PeriodEvening, Subject: "Phát triển ứng dụng",
		Tiet: "13-15", Date: "20/10/2026",
	}}

	events := parse(t, Serialize(sessions, nil, Options{Location: ict, Now: fixedNow}))

	require.Len(t, events, 1)
	assert.Equal(t, "20261020T110000Z", prop(events[0], ical.ComponentPropertyDtStart))
	assert.Equal(t, "20261020T150000Z", prop(events[0], ical.ComponentPropertyDtEnd))
}

func TestExportSkipsUndatedEntries(t *testing.T) {
	sessions := []model.SessionEntry{{Subject: "Không ngày", Tiet: "1-3"}}
	tasks := []model.TaskEntry{{ID: "t1", Title: "Không ngày", Date: "bad"}}

	events := parse(t, Serialize(sessions, tasks, Options{Location: ict, Now: fixedNow}))

	assert.Empty(t, events)
}

func TestExportTask(t *testing.T) {
	tasks := []model.TaskEntry{
		{ID: "abc", Title: "Nộp báo cáo", Time: "21:00", Date: "23/10/2026", Note: "nhóm 3"},
		{ID: "def", Title: "Ôn thi", Time: "", Date: "24/10/2026", Done: true},
	}

	events := parse(t, Serialize(nil, tasks, Options{Location: ict, Now: fixedNow}))

	require.Len(t, events, 2)
	assert.Equal(t, "abc"+uidDomain, prop(events[0], ical.ComponentPropertyUniqueId))
	assert.Equal(t, "20261023T140000Z", prop(events[0], ical.ComponentPropertyDtStart))
	assert.Equal(t, "20261023T150000Z", prop(events[0], ical.ComponentPropertyDtEnd))
	// Missing time falls back to noon.
	assert.Equal(t, "20261024T050000Z", prop(events[1], ical.ComponentPropertyDtStart))
	assert.Equal(t, "✓ Ôn thi", prop(events[1], ical.ComponentPropertySummary))
}

func TestSessionUIDIsStable(t *testing.T) {
	a := model.SessionEntry{Subject: "Mạng máy tính", Tiet: "4-6", Day: 2, Date: "21/10/2026", Room: "B1"}
	b := a
	b.Room = "C2"
	c := a
	c.Tiet = "7-9"

	assert.Equal(t, sessionUID(a), sessionUID(b))
	assert.NotEqual(t, sessionUID(a), sessionUID(c))
}
