package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/config"
	"civicwatch/internal/domain"
	"civicwatch/internal/eventbus"
	"civicwatch/internal/events"
	"civicwatch/internal/ranking"
)

func newService() (*Service, *eventbus.InProcBus) {
	bus := eventbus.NewInProcBus()
	return New(config.Default(), bus), bus
}

func waterDraft(title string) domain.Draft {
	return domain.Draft{
		Title:    title,
		Category: domain.CategoryWater,
		Type:     "Burst Pipe",
		Location: domain.Location{Lat: 8.4665, Lng: -13.2325},
	}
}

func recordEvents(bus *eventbus.InProcBus) *[]string {
	var types []string
	bus.Subscribe(func(e *events.Event) {
		types = append(types, e.EventType)
	})
	return &types
}

type staticLocator struct {
	loc domain.Location
	err error
}

func (l staticLocator) Locate(context.Context) (domain.Location, error) {
	return l.loc, l.err
}

func TestSubmitReport(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the report and publishes report.created", func(t *testing.T) {
		svc, bus := newService()
		seen := recordEvents(bus)

		r, err := svc.SubmitReport(ctx, waterDraft("Major Pipe Burst"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, r.Status)
		assert.Greater(t, r.PriorityScore, 0.0)
		assert.Equal(t, []string{events.ReportCreated}, *seen)
		assert.Equal(t, 1, svc.Count())
	})

	t.Run("invalid draft publishes nothing", func(t *testing.T) {
		svc, bus := newService()
		seen := recordEvents(bus)

		_, err := svc.SubmitReport(ctx, domain.Draft{Title: "no category"})
		var valErr *domain.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Empty(t, *seen)
		assert.Zero(t, svc.Count())
	})

	t.Run("missing location falls back to the locator", func(t *testing.T) {
		svc, _ := newService()
		svc.SetLocator(staticLocator{loc: domain.Location{Lat: 8.47, Lng: -13.23}})

		d := waterDraft("located")
		d.Location = domain.Location{}
		d.Location.Lat = 200 // invalid on purpose
		r, err := svc.SubmitReport(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, 8.47, r.Location.Lat)
	})

	t.Run("locator failure degrades to the default location", func(t *testing.T) {
		svc, _ := newService()
		svc.SetLocator(staticLocator{err: errors.New("permission denied")})

		d := waterDraft("unlocated")
		d.Location = domain.Location{Lat: 200}
		r, err := svc.SubmitReport(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, DefaultLocation, r.Location)
	})
}

func TestUpvote(t *testing.T) {
	ctx := context.Background()

	t.Run("increments the count and never lowers the score", func(t *testing.T) {
		svc, bus := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("Leak on Kissy Rd"))
		require.NoError(t, err)
		seen := recordEvents(bus)

		prev := r.PriorityScore
		for i := 1; i <= 5; i++ {
			r, err = svc.Upvote(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, i, r.UpvoteCount)
			assert.GreaterOrEqual(t, r.PriorityScore, prev)
			prev = r.PriorityScore
		}
		assert.Equal(t, []string{
			events.ReportUpvoted, events.ReportUpvoted, events.ReportUpvoted,
			events.ReportUpvoted, events.ReportUpvoted,
		}, *seen)
	})

	t.Run("unknown id yields NotFoundError", func(t *testing.T) {
		svc, _ := newService()
		r, _ := svc.SubmitReport(ctx, waterDraft("x"))
		_, err := svc.Upvote(ctx, r.ID)
		require.NoError(t, err)

		var nfErr *domain.NotFoundError
		_, err = svc.Upvote(ctx, uuid.New())
		assert.ErrorAs(t, err, &nfErr)
	})
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("resolving publishes status.updated and the celebratory resolved event", func(t *testing.T) {
		svc, bus := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("Major Pipe Burst"))
		require.NoError(t, err)

		var celebrated bool
		svc.OnResolved(func(domain.Report) { celebrated = true })
		seen := recordEvents(bus)

		updated, err := svc.TransitionStatus(ctx, r.ID, domain.StatusResolved, "valve replaced")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, updated.Status)
		assert.True(t, celebrated)
		assert.Equal(t, []string{events.ReportStatusUpdated, events.ReportResolved}, *seen)
	})

	t.Run("missing note fails, leaves the report unchanged, publishes nothing", func(t *testing.T) {
		svc, bus := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("Major Pipe Burst"))
		require.NoError(t, err)
		seen := recordEvents(bus)

		_, err = svc.TransitionStatus(ctx, r.ID, domain.StatusResolved, "")
		require.ErrorIs(t, err, domain.ErrMissingResolutionNote)

		got, _ := svc.Get(r.ID)
		assert.Equal(t, domain.StatusOpen, got.Status)
		assert.Empty(t, *seen)
	})

	t.Run("reopening a resolved report clears its note", func(t *testing.T) {
		svc, _ := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("Major Pipe Burst"))
		require.NoError(t, err)

		_, err = svc.TransitionStatus(ctx, r.ID, domain.StatusResolved, "fixed")
		require.NoError(t, err)
		reopened, err := svc.TransitionStatus(ctx, r.ID, domain.StatusOpen, "")
		require.NoError(t, err)
		assert.Empty(t, reopened.ResolutionNote)
	})
}

func TestViewAndEscalations(t *testing.T) {
	ctx := context.Background()

	t.Run("view is deterministic and respects the filter", func(t *testing.T) {
		svc, _ := newService()
		_, err := svc.SubmitReport(ctx, waterDraft("water issue"))
		require.NoError(t, err)
		_, err = svc.SubmitReport(ctx, domain.Draft{
			Title:    "road issue",
			Category: domain.CategoryRoads,
			Type:     "Pothole",
			Location: domain.Location{Lat: 8.46, Lng: -13.23},
		})
		require.NoError(t, err)

		q := ranking.Query{SortKey: ranking.SortByScore, Direction: ranking.Desc, Department: "roads"}
		first := svc.View(q)
		second := svc.View(q)
		require.Len(t, first, 1)
		assert.Equal(t, "road issue", first[0].Title)
		assert.Equal(t, first, second)
	})

	t.Run("escalations use the configured default threshold", func(t *testing.T) {
		svc, _ := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("big one"))
		require.NoError(t, err)

		// drive the score to the scale top
		for i := 0; i < 10; i++ {
			r, err = svc.Upvote(ctx, r.ID)
			require.NoError(t, err)
		}
		require.GreaterOrEqual(t, r.PriorityScore, 90.0)

		result := svc.Escalations(0)
		assert.Equal(t, 1, result.Count)

		// resolved reports drop out on the next derivation
		_, err = svc.TransitionStatus(ctx, r.ID, domain.StatusResolved, "done")
		require.NoError(t, err)
		assert.Zero(t, svc.Escalations(0).Count)
	})

	t.Run("heatmap weight tops out at 1.0", func(t *testing.T) {
		svc, _ := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("hot spot"))
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			_, err = svc.Upvote(ctx, r.ID)
			require.NoError(t, err)
		}

		points := svc.HeatmapPoints()
		require.Len(t, points, 1)
		assert.Equal(t, 1.0, points[0].Weight)
	})

	t.Run("nearby finds the duplicate candidate", func(t *testing.T) {
		svc, _ := newService()
		r, err := svc.SubmitReport(ctx, waterDraft("existing leak"))
		require.NoError(t, err)

		neighbors := svc.Nearby(domain.Location{Lat: 8.4664, Lng: -13.2324}, 0)
		require.Len(t, neighbors, 1)
		assert.Equal(t, r.ID, neighbors[0].Report.ID)
	})
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	a, _ := newService()
	b, _ := newService()

	_, err := a.SubmitReport(ctx, waterDraft("only in a"))
	require.NoError(t, err)

	assert.Equal(t, 1, a.Count())
	assert.Zero(t, b.Count())
	assert.Empty(t, b.View(ranking.DefaultQuery()))
}
