// Package ranking produces sorted, filtered views of a report collection
// for the dashboard priority table.
package ranking

import (
	"sort"
	"strings"

	"civicwatch/internal/domain"
)

// Sort keys accepted by View. An unknown key falls back to SortByScore.
const (
	SortByScore     = "priorityScore"
	SortByTitle     = "title"
	SortByCategory  = "category"
	SortByStatus    = "status"
	SortByCreatedAt = "createdAt"
	SortByUpvotes   = "upvoteCount"
)

// Directions for Query.Direction.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Query describes one view request. It is owned by the caller and carries
// no state between calls.
type Query struct {
	SortKey    string
	Direction  string
	Department string
}

// DefaultQuery matches the dashboard's initial view: highest score first,
// all departments.
func DefaultQuery() Query {
	return Query{SortKey: SortByScore, Direction: Desc, Department: "all"}
}

// View returns a new, ordered slice of the reports matching the query. The
// input is never mutated. Unknown department filters behave like "all"
// rather than failing; ties always break by id ascending so repeated calls
// with the same input produce the same order.
func View(reports []domain.Report, q Query) []domain.Report {
	out := make([]domain.Report, 0, len(reports))
	filter := domain.Category(q.Department)
	filterAll := q.Department == "" || q.Department == "all" || !domain.IsValidCategory(filter)
	for _, r := range reports {
		if filterAll || r.Category == filter {
			out = append(out, r)
		}
	}

	desc := q.Direction != Asc
	key := q.SortKey
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], key)
		if c == 0 {
			// id tie-break is always ascending, independent of direction
			return out[i].ID.String() < out[j].ID.String()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	return out
}

func compare(a, b domain.Report, key string) int {
	switch key {
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByCategory:
		return strings.Compare(string(a.Category), string(b.Category))
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByCreatedAt:
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	case SortByUpvotes:
		return a.UpvoteCount - b.UpvoteCount
	default: // SortByScore
		switch {
		case a.PriorityScore < b.PriorityScore:
			return -1
		case a.PriorityScore > b.PriorityScore:
			return 1
		}
		return 0
	}
}
