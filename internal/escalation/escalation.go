// Package escalation derives the oversight alert condition from the
// current report set.
package escalation

import (
	"sort"

	"github.com/google/uuid"

	"civicwatch/internal/domain"
)

// Result is one escalation snapshot. AffectedIDs is sorted so the result is
// independent of input order.
type Result struct {
	Count       int         `json:"count"`
	AffectedIDs []uuid.UUID `json:"affected_ids"`
}

// Compute returns the reports requiring oversight attention: priority score
// at or above threshold and not yet resolved. It derives the result fresh
// from the given set on every call; nothing is cached.
func Compute(reports []domain.Report, threshold float64) Result {
	ids := make([]uuid.UUID, 0)
	for _, r := range reports {
		if r.PriorityScore >= threshold && r.Status != domain.StatusResolved {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return Result{Count: len(ids), AffectedIDs: ids}
}
