// Package store holds the in-memory report collection for a session.
//
// Each Store instance is independent; there is no shared state between
// stores, so concurrent sessions get isolated stores. A store-level RWMutex
// serializes read-modify-write cycles, which covers the per-report-id
// exclusion the update path needs.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"civicwatch/internal/domain"
)

// Store is the single source of truth for a session's reports.
type Store struct {
	mu        sync.RWMutex
	reports   map[uuid.UUID]*domain.Report
	order     []uuid.UUID
	maxPhotos int
}

// New creates an empty store. maxPhotos bounds the photo list on create.
func New(maxPhotos int) *Store {
	return &Store{
		reports:   make(map[uuid.UUID]*domain.Report),
		maxPhotos: maxPhotos,
	}
}

// Create validates the draft and inserts a new report with status Open.
// The initial priority score is the caller's responsibility; the submission
// path computes it before insertion so reads never trigger rescoring.
func (s *Store) Create(draft domain.Draft, score float64) (domain.Report, error) {
	if err := draft.Validate(s.maxPhotos); err != nil {
		return domain.Report{}, err
	}

	now := time.Now()
	r := &domain.Report{
		ID:            uuid.New(),
		Title:         draft.Title,
		Category:      draft.Category,
		Type:          draft.Type,
		Description:   draft.Description,
		Location:      draft.Location,
		Photos:        append([]string(nil), draft.Photos...),
		ReportedBy:    draft.ReportedBy,
		PriorityScore: score,
		Status:        domain.StatusOpen,
		CreatedAt:     now,
	}

	s.mu.Lock()
	s.reports[r.ID] = r
	s.order = append(s.order, r.ID)
	s.mu.Unlock()

	return *r, nil
}

// All returns the reports in insertion order. The result is a copy; callers
// may sort or filter it freely.
func (s *Store) All() []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Report, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.reports[id])
	}
	return out
}

// Get returns the report with the given id or a *domain.NotFoundError.
func (s *Store) Get(id uuid.UUID) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return domain.Report{}, &domain.NotFoundError{ID: id}
	}
	return *r, nil
}

// Len returns the number of reports in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Patch names the mutable fields of a report. A nil pointer leaves the
// field untouched; everything else on Report is immutable after create.
type Patch struct {
	Status         *domain.Status
	ResolutionNote *string
	UpvoteCount    *int
	PriorityScore  *float64
}

// Update applies fn to the report under the store lock and persists the
// patch it returns. fn sees a snapshot of the current report; if it returns
// an error nothing is written. The whole cycle is atomic: either every field
// of the patch lands or none does.
func (s *Store) Update(id uuid.UUID, fn func(domain.Report) (Patch, error)) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return domain.Report{}, &domain.NotFoundError{ID: id}
	}

	patch, err := fn(*r)
	if err != nil {
		return domain.Report{}, err
	}

	// validate the whole patch before touching the report so a bad
	// field never leaves a partial write behind
	if patch.Status != nil && !domain.IsValidStatus(*patch.Status) {
		return domain.Report{}, &domain.InvalidStatusError{Status: *patch.Status}
	}
	if patch.UpvoteCount != nil && *patch.UpvoteCount < r.UpvoteCount {
		// upvotes are never decremented
		return domain.Report{}, &domain.ImmutableFieldError{Field: "upvoteCount"}
	}

	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.ResolutionNote != nil {
		r.ResolutionNote = *patch.ResolutionNote
	}
	if patch.UpvoteCount != nil {
		r.UpvoteCount = *patch.UpvoteCount
	}
	if patch.PriorityScore != nil {
		r.PriorityScore = *patch.PriorityScore
	}

	return *r, nil
}
