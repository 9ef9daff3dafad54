// Package tasks provides create/update/delete/toggle over user tasks kept in
// the schedule store. Every mutation is persisted and announced through the
// store's change notification.
package tasks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/model"
	"iuhsched/internal/store"
)

var (
	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTask is returned for tasks with a missing title or an out of
	// range day or period.
	ErrInvalidTask = errors.New("invalid task")
)

// DefaultTime is used when a task is created without a time.
const DefaultTime = "08:00"

// Registry edits the tasks of a store. Like the store, it expects a single
// writer.
type Registry struct {
	store *store.Store
	now   func() time.Time
	newID func() model.TaskID
	used  map[model.TaskID]struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for default dates and created stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator replaces the UUID based id generator.
func WithIDGenerator(gen func() model.TaskID) Option {
	return func(r *Registry) { r.newID = gen }
}

// New returns a Registry over st.
func New(st *store.Store, opts ...Option) *Registry {
	r := &Registry{
		store: st,
		now:   time.Now,
		newID: func() model.TaskID { return model.TaskID(uuid.NewString()) },
		used:  map[model.TaskID]struct{}{},
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, t := range st.Tasks() {
		r.used[t.ID] = struct{}{}
	}
	return r
}

// NewTask holds the fields of a task to create. Date defaults to the given
// day of the current week, Time to DefaultTime.
type NewTask struct {
	Title    string
	Day      int
	Period   int
	Note     string
	Time     string
	Deadline *string
	Date     string
}

// Patch lists the fields to change; nil fields are left as they are.
type Patch struct {
	Title    *string `json:"title,omitempty"`
	Day      *int    `json:"day,omitempty"`
	Period   *int    `json:"period,omitempty"`
	Note     *string `json:"note,omitempty"`
	Time     *string `json:"time,omitempty"`
	Deadline *string `json:"deadline,omitempty"`
	Done     *bool   `json:"done,omitempty"`
	Date     *string `json:"date,omitempty"`
}

// List returns all tasks in creation order.
func (r *Registry) List() []model.TaskEntry {
	return r.store.Tasks()
}

// Get looks up a task by id.
func (r *Registry) Get(id model.TaskID) (model.TaskEntry, bool) {
	for _, t := range r.store.Tasks() {
		if t.ID == id {
			return t, true
		}
	}
	return model.TaskEntry{}, false
}

// Create adds a task and persists it.
func (r *Registry) Create(in NewTask) (model.TaskEntry, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.TaskEntry{}, fmt.Errorf("%w: empty title", ErrInvalidTask)
	}
	if err := validateCell(in.Day, in.Period); err != nil {
		return model.TaskEntry{}, err
	}

	now := r.now()
	date := in.Date
	if date == "" {
		date = model.FormatDate(model.MondayOf(now).AddDate(0, 0, in.Day))
	}
	tm := in.Time
	if tm == "" {
		tm = DefaultTime
	}

	task := model.TaskEntry{
		ID:       r.nextID(),
		Title:    in.Title,
		Day:      in.Day,
		Period:   in.Period,
		Note:     in.Note,
		Time:     tm,
		Deadline: in.Deadline,
		Done:     false,
		Created:  now.Format("2006-01-02T15:04:05.000000"),
		Date:     date,
	}
	r.store.UpdateTasks(func(ts []model.TaskEntry) []model.TaskEntry {
		return append(ts, task)
	})
	r.store.Commit()

	appLog.Info("task created", "id", task.ID, "date", task.Date, "period", task.Period)
	return task, nil
}

// Update applies p to the task with the given id.
func (r *Registry) Update(id model.TaskID, p Patch) (model.TaskEntry, error) {
	return r.mutate(id, func(t *model.TaskEntry) error {
		day, period := t.Day, t.Period
		if p.Day != nil {
			day = *p.Day
		}
		if p.Period != nil {
			period = *p.Period
		}
		if err := validateCell(day, period); err != nil {
			return err
		}
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return fmt.Errorf("%w: empty title", ErrInvalidTask)
			}
			t.Title = title
		}
		t.Day, t.Period = day, period
		if p.Note != nil {
			t.Note = *p.Note
		}
		if p.Time != nil {
			t.Time = *p.Time
		}
		if p.Deadline != nil {
			d := *p.Deadline
			t.Deadline = &d
		}
		if p.Done != nil {
			t.Done = *p.Done
		}
		if p.Date != nil {
			t.Date = *p.Date
		}
		return nil
	})
}

// Toggle flips the done flag of a task.
func (r *Registry) Toggle(id model.TaskID) (model.TaskEntry, error) {
	return r.mutate(id, func(t *model.TaskEntry) error {
		t.Done = !t.Done
		return nil
	})
}

// Delete removes a task permanently. Its id is never handed out again.
func (r *Registry) Delete(id model.TaskID) error {
	found := false
	r.store.UpdateTasks(func(ts []model.TaskEntry) []model.TaskEntry {
		out := ts[:0]
		for _, t := range ts {
			if t.ID == id {
				found = true
				continue
			}
			out = append(out, t)
		}
		return out
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	r.store.Commit()
	appLog.Info("task deleted", "id", id)
	return nil
}

func (r *Registry) mutate(id model.TaskID, fn func(*model.TaskEntry) error) (model.TaskEntry, error) {
	var (
		updated model.TaskEntry
		found   bool
		err     error
	)
	r.store.UpdateTasks(func(ts []model.TaskEntry) []model.TaskEntry {
		for i := range ts {
			if ts[i].ID != id {
				continue
			}
			found = true
			candidate := ts[i]
			if err = fn(&candidate); err != nil {
				return ts
			}
			ts[i] = candidate
			updated = candidate
			return ts
		}
		return ts
	})
	if !found {
		return model.TaskEntry{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return model.TaskEntry{}, err
	}
	r.store.Commit()
	return updated, nil
}

// nextID returns an id that has not been used by this registry or stored.
func (r *Registry) nextID() model.TaskID {
	for {
		id := r.newID()
		if _, taken := r.used[id]; taken {
			continue
		}
		r.used[id] = struct{}{}
		return id
	}
}

func validateCell(day, period int) error {
	if day < 0 || day >= model.DaysPerWeek {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidTask, day)
	}
	if period < model.PeriodMorning || period > model.PeriodEvening {
		return fmt.Errorf("%w: period %d out of range", ErrInvalidTask, period)
	}
	return nil
}
