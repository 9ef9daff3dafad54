// Package merge reconciles freshly extracted session entries with the ones
// already stored. Merging is strictly additive: stored entries are never
// changed or dropped, and an identity key is only ever stored once.
package merge

import "iuhsched/internal/model"

// Result describes the outcome of a merge.
type Result struct {
	// Entries holds the existing entries in their original order followed by
	// the newly added entries in extraction order.
	Entries    []model.SessionEntry
	Added      int
	Duplicates int
}

// Merge appends every fresh entry whose identity key is not yet present.
// Keys are tracked as they are added, so repeated keys within fresh are
// suppressed too. existing is not modified.
func Merge(existing, fresh []model.SessionEntry) Result {
	seen := make(map[model.Key]struct{}, len(existing)+len(fresh))
	out := make([]model.SessionEntry, len(existing), len(existing)+len(fresh))
	copy(out, existing)
	for _, e := range existing {
		seen[e.Key()] = struct{}{}
	}

	res := Result{}
	for _, e := range fresh {
		k := e.Key()
		if _, dup := seen[k]; dup {
			res.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
		res.Added++
	}
	res.Entries = out
	return res
}

// Dedupe removes repeated identity keys from entries, keeping the first
// occurrence. It is used when loading files written by older versions that
// replaced rather than merged.
func Dedupe(entries []model.SessionEntry) []model.SessionEntry {
	return Merge(nil, entries).Entries
}
