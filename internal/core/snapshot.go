package core

import "context"

// Snapshot maps lock file names to their content at a point in time.
// Absent files are simply not present in the map.
type Snapshot map[string]string

// TakeSnapshot reads the named files through the file store in one batch.
func TakeSnapshot(ctx context.Context, files FileStore, names []string) (Snapshot, error) {
	contents, err := files.ReadAll(ctx, names)
	if err != nil {
		return nil, err
	}
	return Snapshot(contents), nil
}

// Empty reports whether no watched file had content.
func (s Snapshot) Empty() bool {
	return len(s) == 0
}

// DiffSnapshots compares before and after content for each watched name.
// Unchanged files are omitted, changed files become Additions with their
// full new content. A file present before but absent after is returned
// separately as deleted; the caller decides how to surface it.
func DiffSnapshots(before, after Snapshot, names []string) (additions []Addition, deleted []string) {
	for _, name := range names {
		prev, hadPrev := before[name]
		next, hasNext := after[name]

		switch {
		case hadPrev && !hasNext:
			deleted = append(deleted, name)
		case hasNext && (!hadPrev || prev != next):
			additions = append(additions, Addition{Path: name, Contents: next})
		}
	}
	return additions, deleted
}
