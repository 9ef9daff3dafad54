package tasks

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iuhsched/internal/model"
	"iuhsched/internal/store"
)

// Thursday 22 October 2026.
var fixedNow = time.Date(2026, time.October, 22, 9, 15, 0, 0, time.UTC)

func newRegistry(t *testing.T, opts ...Option) (*Registry, *store.Store, *int) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "schedule_data.json"),
		store.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	notified := 0
	st.Subscribe(func() { notified++ })
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(st, opts...), st, &notified
}

// sequence hands out ids from a fixed list, to exercise reuse protection.
func sequence(ids ...string) func() model.TaskID {
	i := 0
	return func() model.TaskID {
		id := ids[i%len(ids)]
		i++
		return model.TaskID(id)
	}
}

func TestCreateDefaults(t *testing.T) {
	reg, st, notified := newRegistry(t)

	task, err := reg.Create(NewTask{Title: "  Nộp báo cáo  ", Day: 4, Period: model.PeriodAfternoon})

	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Nộp báo cáo", task.Title)
	assert.Equal(t, "23/10/2026", task.Date)
	assert.Equal(t, DefaultTime, task.Time)
	assert.False(t, task.Done)
	assert.Equal(t, "2026-10-22T09:15:00.000000", task.Created)
	assert.Equal(t, 1, *notified)

	reopened, err := store.Open(st.Path())
	require.NoError(t, err)
	require.Len(t, reopened.Tasks(), 1)
	assert.Equal(t, task.ID, reopened.Tasks()[0].ID)
}

func TestCreateKeepsExplicitDate(t *testing.T) {
	reg, _, _ := newRegistry(t)

	task, err := reg.Create(NewTask{Title: "Ôn thi", Day: 0, Period: 2, Time: "19:30", Date: "02/11/2026"})

	require.NoError(t, err)
	assert.Equal(t, "02/11/2026", task.Date)
	assert.Equal(t, "19:30", task.Time)
}

func TestCreateValidates(t *testing.T) {
	reg, _, notified := newRegistry(t)

	_, err := reg.Create(NewTask{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidTask)
	_, err = reg.Create(NewTask{Title: "x", Day: 7})
	assert.ErrorIs(t, err, ErrInvalidTask)
	_, err = reg.Create(NewTask{Title: "x", Period: 3})
	assert.ErrorIs(t, err, ErrInvalidTask)

	assert.Empty(t, reg.List())
	assert.Zero(t, *notified)
}

func TestIDsAreNeverReused(t *testing.T) {
	reg, _, _ := newRegistry(t, WithIDGenerator(sequence("a", "a", "b", "a", "b", "c")))

	first, err := reg.Create(NewTask{Title: "first"})
	require.NoError(t, err)
	require.NoError(t, reg.Delete(first.ID))
	second, err := reg.Create(NewTask{Title: "second"})
	require.NoError(t, err)
	third, err := reg.Create(NewTask{Title: "third"})
	require.NoError(t, err)

	assert.Equal(t, model.TaskID("a"), first.ID)
	assert.Equal(t, model.TaskID("b"), second.ID)
	assert.Equal(t, model.TaskID("c"), third.ID)
}

func TestIDsSkipStoredTasks(t *testing.T) {
	_, st, _ := newRegistry(t)
	st.UpdateTasks(func(ts []model.TaskEntry) []model.TaskEntry {
		return append(ts, model.TaskEntry{ID: "a", Title: "old"})
	})

	reg := New(st, WithIDGenerator(sequence("a", "b")))
	task, err := reg.Create(NewTask{Title: "new"})

	require.NoError(t, err)
	assert.Equal(t, model.TaskID("b"), task.ID)
}

func TestUUIDGenerator(t *testing.T) {
	reg, _, _ := newRegistry(t)
	seen := map[model.TaskID]bool{}
	for i := 0; i < 50; i++ {
		task, err := reg.Create(NewTask{Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
		assert.False(t, seen[task.ID])
		seen[task.ID] = true
	}
}

func TestUpdate(t *testing.T) {
	reg, _, notified := newRegistry(t)
	task, err := reg.Create(NewTask{Title: "Ôn thi", Day: 1})
	require.NoError(t, err)

	title, tm, day := "Ôn thi giữa kỳ", "20:00", 3
	updated, err := reg.Update(task.ID, Patch{Title: &title, Time: &tm, Day: &day})

	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, tm, updated.Time)
	assert.Equal(t, 3, updated.Day)
	// Untouched fields survive.
	assert.Equal(t, task.Date, updated.Date)
	got, ok := reg.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)
	assert.Equal(t, 2, *notified)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	reg, _, _ := newRegistry(t)
	task, err := reg.Create(NewTask{Title: "Ôn thi"})
	require.NoError(t, err)

	period := 5
	_, err = reg.Update(task.ID, Patch{Period: &period})
	assert.ErrorIs(t, err, ErrInvalidTask)

	got, _ := reg.Get(task.ID)
	assert.Equal(t, task, got)
}

func TestToggle(t *testing.T) {
	reg, _, _ := newRegistry(t)
	task, err := reg.Create(NewTask{Title: "Ôn thi"})
	require.NoError(t, err)

	toggled, err := reg.Toggle(task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)

	toggled, err = reg.Toggle(task.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Done)
}

func TestUnknownID(t *testing.T) {
	reg, _, notified := newRegistry(t)

	_, err := reg.Toggle("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = reg.Update("missing", Patch{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, reg.Delete("missing"), ErrTaskNotFound)
	assert.Zero(t, *notified)
}

func TestDelete(t *testing.T) {
	reg, _, _ := newRegistry(t)
	a, err := reg.Create(NewTask{Title: "a"})
	require.NoError(t, err)
	b, err := reg.Create(NewTask{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, reg.Delete(a.ID))

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}
