// Package store keeps the session and task collections and persists them to
// a JSON file partitioned by week. The store is meant to be used from a
// single goroutine; see internal/engine for the writer loop.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/merge"
	"iuhsched/internal/model"
)

// Store owns the flat in-memory collections of sessions and tasks.
type Store struct {
	path string
	now  func() time.Time

	sessions []model.SessionEntry
	tasks    []model.TaskEntry

	subscribers map[int]func()
	nextSub     int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for the "updated" stamp and the
// fallback task bucket.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the data file at path. A missing file yields an empty store.
// When the file cannot be read or decoded, the returned store is still usable
// (empty) and the error tells the caller what happened.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		now:         time.Now,
		subscribers: map[int]func(){},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// Reload replaces the in-memory state with the file content. On failure the
// current state is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return errors.New("store path is empty")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("store: no data file yet", "path", s.path)
			return nil
		}
		appLog.Error("store: read failed", err, "path", s.path)
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	doc, err := decode(data)
	if err != nil {
		appLog.Error("store: decode failed", err, "path", s.path)
		return err
	}

	sessions, tasks := Flatten(doc.buckets)
	deduped := merge.Dedupe(sessions)
	if n := len(sessions) - len(deduped); n > 0 {
		appLog.Warn("store: dropped duplicate sessions on load", "count", n)
	}
	s.sessions = deduped
	s.tasks = tasks

	appLog.Info("store: loaded",
		"path", s.path,
		"shape", doc.shape,
		"buckets", len(doc.buckets),
		"sessions", len(s.sessions),
		"tasks", len(s.tasks),
	)
	return nil
}

// Sessions returns a copy of the stored sessions in order.
func (s *Store) Sessions() []model.SessionEntry {
	return append([]model.SessionEntry(nil), s.sessions...)
}

// Tasks returns a copy of the stored tasks in order.
func (s *Store) Tasks() []model.TaskEntry {
	return append([]model.TaskEntry(nil), s.tasks...)
}

// MergeSessions adds the fresh entries whose identity key is new. It does not
// persist; call Commit afterwards.
func (s *Store) MergeSessions(fresh []model.SessionEntry) merge.Result {
	res := merge.Merge(s.sessions, fresh)
	s.sessions = res.Entries
	return res
}

// UpdateTasks replaces the task collection with the result of fn, which
// receives a copy of the current tasks.
func (s *Store) UpdateTasks(fn func([]model.TaskEntry) []model.TaskEntry) {
	s.tasks = fn(s.Tasks())
}

// Save writes the week-partitioned file atomically. In-memory state is left
// untouched whether or not the write succeeds.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("store path is empty")
	}
	now := s.now()
	fallback := WeekKey(model.FormatDate(now))
	buckets := Partition(s.sessions, s.tasks, fallback)

	data, err := encode(buckets, now.Format("2006-01-02T15:04:05.000000"))
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	appLog.Debug("store: saved", "path", s.path, "buckets", len(buckets))
	return nil
}

// Commit persists the current state and notifies subscribers. A failed write
// is logged only; callers keep working with the in-memory state.
func (s *Store) Commit() {
	if err := s.Save(); err != nil {
		appLog.Error("store: save failed, keeping in-memory state", err, "path", s.path)
	}
	s.notify()
}

// Subscribe registers fn to be called after every committed mutation. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() { delete(s.subscribers, id) }
}

func (s *Store) notify() {
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			fn()
		}
	}
}

// writeAtomic writes data to a temp file in the same directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".iuhsched-data-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
