package main

import (
	"fmt"
	"strconv"
	"time"

	"winenotes/internal/recordstore"
)

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// resolveIDs turns user references into record ids up front so that
// removing one record does not shift the meaning of a later list number.
func resolveIDs(store *recordstore.Store, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		idx, err := store.Resolve(ref)
		if err != nil {
			return nil, err
		}
		rec, err := store.At(idx)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// shortID trims an id for table output; Resolve accepts the prefix back.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func listNumber(idx int) string {
	return strconv.Itoa(idx + 1)
}
