// Package reconcile merges freshly synced watch records into a locally
// curated record set.
package reconcile

import "github.com/robertmeta/alist-cli/model"

// Merge combines incoming feed records with existing records.
//
// The feed owns factual fields (title, date, source details); the user owns
// curation (membership flag, manual marker, notes). A rating from the feed
// wins when present, otherwise the existing rating is kept. Existing records
// that the feed no longer lists are kept after the merged ones, in their
// original order. If incoming repeats an id, the first occurrence wins.
//
// Merge never modifies its arguments and always returns a new slice.
func Merge(incoming, existing []model.WatchRecord) []model.WatchRecord {
	byID := make(map[string]model.WatchRecord, len(existing))
	for _, r := range existing {
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = r
		}
	}

	merged := make([]model.WatchRecord, 0, len(incoming)+len(existing))
	seen := make(map[string]bool, len(incoming)+len(existing))

	for _, in := range incoming {
		if seen[in.ID] {
			continue
		}
		seen[in.ID] = true

		prev, ok := byID[in.ID]
		if !ok {
			merged = append(merged, in)
			continue
		}
		merged = append(merged, mergeRecord(in, prev))
	}

	for _, r := range existing {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
	}

	return merged
}

func mergeRecord(in, prev model.WatchRecord) model.WatchRecord {
	out := in
	out.CountsTowardMembership = prev.CountsTowardMembership
	out.AddedManually = prev.AddedManually
	out.Notes = prev.Notes
	if out.Rating == nil && prev.Rating != nil {
		v := *prev.Rating
		out.Rating = &v
	}
	return out
}

// Diff counts how a merge changed the record set: records that did not exist
// before and records whose feed-owned fields changed.
func Diff(existing, merged []model.WatchRecord) (added, updated int) {
	byID := make(map[string]model.WatchRecord, len(existing))
	for _, r := range existing {
		byID[r.ID] = r
	}
	for _, r := range merged {
		prev, ok := byID[r.ID]
		switch {
		case !ok:
			added++
		case !sameFeedFields(prev, r):
			updated++
		}
	}
	return added, updated
}

func sameFeedFields(a, b model.WatchRecord) bool {
	return a.Title == b.Title &&
		a.WatchDate.Equal(b.WatchDate) &&
		a.SourceID == b.SourceID &&
		a.Link == b.Link &&
		a.FilmYear == b.FilmYear &&
		a.Rewatch == b.Rewatch &&
		a.TMDBID == b.TMDBID &&
		sameRating(a.Rating, b.Rating)
}

func sameRating(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
