package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iuhsched/internal/model"
)

func session(date, subject, tiet string, day int) model.SessionEntry {
	return model.SessionEntry{
		Raw:     subject + " Tiết:" + tiet,
		Day:     day,
		Subject: subject,
		Tiet:    tiet,
		Date:    date,
	}
}

func TestMergeSkipsKnownKeys(t *testing.T) {
	x := session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0)
	y := session("20/10/2026", "Cấu trúc dữ liệu", "4-6", 1)

	res := Merge([]model.SessionEntry{x}, []model.SessionEntry{x, y})

	require.Len(t, res.Entries, 2)
	assert.Equal(t, []model.SessionEntry{x, y}, res.Entries)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Duplicates)
}

func TestMergeIsIdempotent(t *testing.T) {
	fresh := []model.SessionEntry{
		session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0),
		session("21/10/2026", "Kiểm thử phần mềm", "7-9", 2),
	}

	once := Merge(nil, fresh)
	twice := Merge(once.Entries, fresh)

	assert.Len(t, twice.Entries, len(once.Entries))
	assert.Zero(t, twice.Added)
	assert.Equal(t, len(fresh), twice.Duplicates)
}

func TestMergePreservesExistingOrder(t *testing.T) {
	existing := []model.SessionEntry{
		session("21/10/2026", "Kiểm thử phần mềm", "7-9", 2),
		session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0),
		// Same subject on a different date is a different key.
		session("26/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0),
	}
	fresh := []model.SessionEntry{
		session("28/10/2026", "Kiểm thử phần mềm", "7-9", 2),
		session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0),
		session("27/10/2026", "Cấu trúc dữ liệu", "4-6", 1),
	}

	res := Merge(existing, fresh)

	require.Len(t, res.Entries, 5)
	assert.Equal(t, existing, res.Entries[:3])
	assert.Equal(t, fresh[0], res.Entries[3])
	assert.Equal(t, fresh[2], res.Entries[4])
}

func TestMergeDoesNotAliasExisting(t *testing.T) {
	existing := make([]model.SessionEntry, 1, 4)
	existing[0] = session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0)

	res := Merge(existing, []model.SessionEntry{session("20/10/2026", "Cấu trúc dữ liệu", "4-6", 1)})
	res.Entries[0].Subject = "changed"

	assert.Equal(t, "Nhập môn Công nghệ thông tin", existing[0].Subject)
}

func TestMergeSuppressesDuplicatesWithinBatch(t *testing.T) {
	a := session("", "Môn học", "1-3", 4)

	res := Merge(nil, []model.SessionEntry{a, a, a})

	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 2, res.Duplicates)
}

func TestMergeKeyIgnoresRoomAndPeriod(t *testing.T) {
	a := session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0)
	b := a
	b.Room = "B2.05"
	b.Period = model.PeriodAfternoon

	res := Merge([]model.SessionEntry{a}, []model.SessionEntry{b})

	assert.Len(t, res.Entries, 1)
}

func TestDedupe(t *testing.T) {
	a := session("19/10/2026", "Nhập môn Công nghệ thông tin", "1-3", 0)
	b := session("20/10/2026", "Cấu trúc dữ liệu", "4-6", 1)

	assert.Equal(t, []model.SessionEntry{a, b}, Dedupe([]model.SessionEntry{a, b, a}))
}
