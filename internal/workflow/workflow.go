// Package workflow enforces the report lifecycle state machine.
//
// Any transition between Open, Scheduled and Resolved is allowed, with one
// gate: moving into Resolved requires a non-empty resolution note. Moving
// out of Resolved clears the note. A transition either lands completely
// (status and note together) or not at all.
package workflow

import (
	"strings"

	"github.com/google/uuid"

	"civicwatch/internal/domain"
	"civicwatch/internal/store"
)

// ResolvedListener is notified after a report transitions into Resolved.
// Listeners are for side-channel signaling (the dashboard celebration);
// they must not block and cannot veto the transition.
type ResolvedListener func(report domain.Report)

// Manager applies status transitions against a store.
type Manager struct {
	store     *store.Store
	listeners []ResolvedListener
}

// NewManager creates a Manager bound to one store.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// OnResolved registers a listener for transitions into Resolved. Not safe
// to call concurrently with Transition; register listeners at setup time.
func (m *Manager) OnResolved(fn ResolvedListener) {
	m.listeners = append(m.listeners, fn)
}

// Transition moves the report to newStatus and returns the updated report
// along with the status it had before. note is required (non-blank) when
// newStatus is Resolved and ignored otherwise. On failure the report is
// unchanged.
func (m *Manager) Transition(id uuid.UUID, newStatus domain.Status, note string) (domain.Report, domain.Status, error) {
	if !domain.IsValidStatus(newStatus) {
		return domain.Report{}, "", &domain.InvalidStatusError{Status: newStatus}
	}

	var prev domain.Status
	updated, err := m.store.Update(id, func(r domain.Report) (store.Patch, error) {
		prev = r.Status
		patch := store.Patch{Status: &newStatus}
		switch {
		case newStatus == domain.StatusResolved:
			trimmed := strings.TrimSpace(note)
			if trimmed == "" {
				return store.Patch{}, domain.ErrMissingResolutionNote
			}
			patch.ResolutionNote = &trimmed
		case r.Status == domain.StatusResolved:
			// leaving Resolved reopens the report; the old note no
			// longer describes its state
			empty := ""
			patch.ResolutionNote = &empty
		}
		return patch, nil
	})
	if err != nil {
		return domain.Report{}, "", err
	}

	if updated.Status == domain.StatusResolved {
		for _, fn := range m.listeners {
			fn(updated)
		}
	}

	return updated, prev, nil
}
