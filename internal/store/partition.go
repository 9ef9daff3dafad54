package store

import (
	"strings"
	"time"

	"iuhsched/internal/model"
)

const (
	// WeekKeyPrefix prefixes every week bucket key, e.g. "tuan19/10/2026".
	WeekKeyPrefix = "tuan"
	// UnknownBucket holds sessions whose date cannot be parsed.
	UnknownBucket = "unknown"
)

// Bucket is one week partition of the data file.
type Bucket struct {
	Key      string
	Schedule []model.SessionEntry
	Tasks    []model.TaskEntry
}

// WeekKey returns the bucket key of the week containing date (dd/mm/yyyy),
// or UnknownBucket when date is malformed.
func WeekKey(date string) string {
	if len(date) < 10 {
		return UnknownBucket
	}
	t, err := model.ParseDate(date, time.UTC)
	if err != nil {
		return UnknownBucket
	}
	return WeekKeyPrefix + model.FormatDate(model.MondayOf(t))
}

// IsBucketKey reports whether key names a partition in the week-based file.
func IsBucketKey(key string) bool {
	return strings.HasPrefix(key, WeekKeyPrefix) || key == UnknownBucket
}

// Partition groups sessions by the Monday of their week, keeping the order in
// which buckets are first seen. All tasks are attached to the first bucket;
// when there are no sessions they go to fallback.
func Partition(sessions []model.SessionEntry, tasks []model.TaskEntry, fallback string) []Bucket {
	var buckets []Bucket
	index := map[string]int{}
	bucketFor := func(key string) *Bucket {
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key})
		}
		return &buckets[i]
	}

	for _, s := range sessions {
		b := bucketFor(WeekKey(s.Date))
		b.Schedule = append(b.Schedule, s)
	}
	if len(tasks) > 0 {
		var b *Bucket
		if len(buckets) > 0 {
			b = &buckets[0]
		} else {
			b = bucketFor(fallback)
		}
		b.Tasks = append(b.Tasks, tasks...)
	}
	return buckets
}

// Flatten concatenates buckets back into the two flat collections.
func Flatten(buckets []Bucket) ([]model.SessionEntry, []model.TaskEntry) {
	var sessions []model.SessionEntry
	var tasks []model.TaskEntry
	for _, b := range buckets {
		sessions = append(sessions, b.Schedule...)
		tasks = append(tasks, b.Tasks...)
	}
	return sessions, tasks
}
