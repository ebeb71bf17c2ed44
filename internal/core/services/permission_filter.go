package services

import (
	"github.com/custodia-labs/navo/internal/core/domain"
)

// FilterByPermission keeps the results the caller may view and drops merged
// references the caller may not view. When the winner of a duplicate group
// is hidden, its best visible duplicate takes its place. It never mutates
// its input. An empty result is a valid outcome, not an error.
func FilterByPermission(results []domain.RankedResult, perms domain.PermissionSet) []domain.RankedResult {
	out := make([]domain.RankedResult, 0, len(results))
	promoted := false
	for _, r := range results {
		if perms.Intersects(r.Candidate.Permissions) {
			r.MergedFrom = visibleRefs(r.MergedFrom, perms, domain.SourceRef{})
			r.Duplicates = nil
			out = append(out, r)
			continue
		}
		for _, d := range r.Duplicates {
			if !perms.Intersects(d.Candidate.Permissions) {
				continue
			}
			d.MergedFrom = visibleRefs(r.MergedFrom, perms, refOf(d.Candidate))
			d.Duplicates = nil
			out = append(out, d)
			promoted = true
			break
		}
	}
	if promoted {
		sortResults(out)
	}
	return out
}

// visibleRefs filters refs by perms and leaves out self.
func visibleRefs(refs []domain.SourceRef, perms domain.PermissionSet, self domain.SourceRef) []domain.SourceRef {
	if len(refs) == 0 {
		return nil
	}
	out := make([]domain.SourceRef, 0, len(refs))
	for _, ref := range refs {
		if ref.SourceID == self.SourceID && ref.DocumentID == self.DocumentID {
			continue
		}
		if perms.Intersects(ref.Permissions) {
			out = append(out, ref)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
