package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/domain"
	"civicwatch/internal/store"
)

func newFixture(t *testing.T) (*Manager, *store.Store, domain.Report) {
	t.Helper()
	s := store.New(3)
	r, err := s.Create(domain.Draft{
		Title:    "Major Pipe Burst",
		Category: domain.CategoryWater,
		Type:     "Burst Pipe",
		Location: domain.Location{Lat: 8.4665, Lng: -13.2325},
	}, 95)
	require.NoError(t, err)
	return NewManager(s), s, r
}

func TestTransition(t *testing.T) {
	t.Run("open to scheduled", func(t *testing.T) {
		m, _, r := newFixture(t)
		updated, prev, err := m.Transition(r.ID, domain.StatusScheduled, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, prev)
		assert.Equal(t, domain.StatusScheduled, updated.Status)
	})

	t.Run("resolving without a note fails and changes nothing", func(t *testing.T) {
		m, s, r := newFixture(t)
		_, _, err := m.Transition(r.ID, domain.StatusResolved, "   ")
		require.ErrorIs(t, err, domain.ErrMissingResolutionNote)

		got, err := s.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, got.Status)
		assert.Empty(t, got.ResolutionNote)
	})

	t.Run("resolving with a note records it", func(t *testing.T) {
		m, _, r := newFixture(t)
		updated, _, err := m.Transition(r.ID, domain.StatusResolved, "replaced the main valve")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, updated.Status)
		assert.Equal(t, "replaced the main valve", updated.ResolutionNote)
	})

	t.Run("leaving resolved clears the note", func(t *testing.T) {
		m, s, r := newFixture(t)
		_, _, err := m.Transition(r.ID, domain.StatusResolved, "fixed")
		require.NoError(t, err)

		updated, prev, err := m.Transition(r.ID, domain.StatusOpen, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, prev)
		assert.Equal(t, domain.StatusOpen, updated.Status)
		assert.Empty(t, updated.ResolutionNote)

		got, _ := s.Get(r.ID)
		assert.Empty(t, got.ResolutionNote)
	})

	t.Run("any pair of distinct states is reachable", func(t *testing.T) {
		m, _, r := newFixture(t)
		steps := []domain.Status{
			domain.StatusScheduled,
			domain.StatusResolved,
			domain.StatusScheduled,
			domain.StatusOpen,
			domain.StatusResolved,
			domain.StatusOpen,
		}
		for _, target := range steps {
			_, _, err := m.Transition(r.ID, target, "done")
			require.NoError(t, err, "to %s", target)
		}
	})

	t.Run("invalid target status is rejected", func(t *testing.T) {
		m, _, r := newFixture(t)
		_, _, err := m.Transition(r.ID, "Closed", "")
		var statErr *domain.InvalidStatusError
		assert.ErrorAs(t, err, &statErr)
	})

	t.Run("unknown id yields NotFoundError", func(t *testing.T) {
		m, _, _ := newFixture(t)
		_, _, err := m.Transition(uuid.New(), domain.StatusScheduled, "")
		var nfErr *domain.NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})
}

func TestOnResolved(t *testing.T) {
	t.Run("listener fires only on transitions into resolved", func(t *testing.T) {
		m, _, r := newFixture(t)

		var celebrated []domain.Report
		m.OnResolved(func(r domain.Report) {
			celebrated = append(celebrated, r)
		})

		_, _, err := m.Transition(r.ID, domain.StatusScheduled, "")
		require.NoError(t, err)
		assert.Empty(t, celebrated)

		_, _, err = m.Transition(r.ID, domain.StatusResolved, "crew dispatched and fixed")
		require.NoError(t, err)
		require.Len(t, celebrated, 1)
		assert.Equal(t, r.ID, celebrated[0].ID)
		assert.Equal(t, "crew dispatched and fixed", celebrated[0].ResolutionNote)
	})

	t.Run("failed transition never notifies", func(t *testing.T) {
		m, _, r := newFixture(t)
		fired := false
		m.OnResolved(func(domain.Report) { fired = true })

		_, _, err := m.Transition(r.ID, domain.StatusResolved, "")
		require.Error(t, err)
		assert.False(t, fired)
	})
}
