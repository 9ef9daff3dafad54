package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("19/10/2026", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "19/10", "31/02/2026", "aa/10/2026", "19-10-2026"} {
		_, err := ParseDate(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestMondayOf(t *testing.T) {
	sunday := time.Date(2026, time.October, 18, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "12/10/2026", FormatDate(MondayOf(sunday)))

	monday := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, MondayOf(monday.Add(5*time.Hour)))
}

func TestDayMonth(t *testing.T) {
	assert.Equal(t, "19/10", DayMonth("19/10/2026"))
	assert.Equal(t, "", DayMonth("1/1"))
}

func TestTaskIDAcceptsNumbers(t *testing.T) {
	var tasks []TaskEntry
	err := json.Unmarshal([]byte(`[{"id":1700000000.123456},{"id":"abc"},{"id":null}]`), &tasks)
	require.NoError(t, err)

	assert.Equal(t, TaskID("1700000000.123456"), tasks[0].ID)
	assert.Equal(t, TaskID("abc"), tasks[1].ID)
	assert.Equal(t, TaskID(""), tasks[2].ID)
}

func TestWeekDateMapComplete(t *testing.T) {
	m := WeekDateMap{}
	for d := 0; d < DaysPerWeek-1; d++ {
		m[d] = "x"
	}
	assert.False(t, m.Complete())
	m[DaysPerWeek-1] = "x"
	assert.True(t, m.Complete())
}

func TestSessionKeyIgnoresRoomAndPeriod(t *testing.T) {
	a := SessionEntry{Subject: "A", Tiet: "1-3", Day: 1, Date: "20/10/2026", Room: "X", Period: 0}
	b := a
	b.Room, b.Period = "Y", 2
	assert.Equal(t, a.Key(), b.Key())
}
