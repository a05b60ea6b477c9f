// Package service is the session façade over the report core. One Service
// owns one store; separate sessions get separate, fully isolated services.
package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"civicwatch/internal/config"
	"civicwatch/internal/domain"
	"civicwatch/internal/escalation"
	"civicwatch/internal/eventbus"
	"civicwatch/internal/events"
	"civicwatch/internal/geo"
	"civicwatch/internal/ranking"
	"civicwatch/internal/scoring"
	"civicwatch/internal/store"
	"civicwatch/internal/workflow"
)

// Locator is the geolocation collaborator: it resolves the device position
// when a draft arrives without a usable location. Implementations must
// honor the context deadline.
type Locator interface {
	Locate(ctx context.Context) (domain.Location, error)
}

// DefaultLocation anchors reports whose location could not be resolved
// (central Freetown, matching the submission form's initial map position).
var DefaultLocation = domain.Location{Lat: 8.485488, Lng: -13.226863}

const locateTimeout = 3 * time.Second

// Service wires the store, scoring, workflow, escalation and geo layers
// together and publishes events after successful mutations.
type Service struct {
	cfg      config.Config
	store    *store.Store
	scorer   *scoring.Engine
	workflow *workflow.Manager
	bus      eventbus.Bus
	locator  Locator
}

// New creates a Service with a fresh, empty store. bus may be nil, in which
// case events stay on an in-process bus.
func New(cfg config.Config, bus eventbus.Bus) *Service {
	if bus == nil {
		bus = eventbus.NewInProcBus()
	}
	st := store.New(cfg.Reports.MaxPhotos)
	return &Service{
		cfg:      cfg,
		store:    st,
		scorer:   scoring.NewEngine(cfg.Scoring),
		workflow: workflow.NewManager(st),
		bus:      bus,
	}
}

// SetLocator installs the geolocation collaborator.
func (s *Service) SetLocator(l Locator) { s.locator = l }

// OnResolved registers a listener for transitions into Resolved.
func (s *Service) OnResolved(fn workflow.ResolvedListener) {
	s.workflow.OnResolved(fn)
}

// SubmitReport validates and stores a new report. Drafts without a valid
// location fall back to the geolocation collaborator and then to
// DefaultLocation, so a denied location permission never blocks submission.
func (s *Service) SubmitReport(ctx context.Context, draft domain.Draft) (domain.Report, error) {
	if !draft.Location.Valid() {
		draft.Location = s.resolveLocation(ctx)
	}

	score := s.scorer.Score(domain.Report{Category: draft.Category, CreatedAt: time.Now()}, time.Now())
	r, err := s.store.Create(draft, score)
	if err != nil {
		return domain.Report{}, err
	}

	s.publish(ctx, events.ReportCreated, r.ID.String(), events.ReportCreatedPayload{
		ReportID:      r.ID.String(),
		Title:         r.Title,
		Category:      r.Category,
		Type:          r.Type,
		PriorityScore: r.PriorityScore,
		CreatedAt:     r.CreatedAt,
	})
	return r, nil
}

// Upvote increments the report's upvote count and rescores it in the same
// atomic update. The score never drops on an upvote, even as the recency
// boost decays between recomputations.
func (s *Service) Upvote(ctx context.Context, id uuid.UUID) (domain.Report, error) {
	now := time.Now()
	r, err := s.store.Update(id, func(r domain.Report) (store.Patch, error) {
		count := r.UpvoteCount + 1
		r.UpvoteCount = count
		score := s.scorer.Score(r, now)
		if score < r.PriorityScore {
			score = r.PriorityScore
		}
		return store.Patch{UpvoteCount: &count, PriorityScore: &score}, nil
	})
	if err != nil {
		return domain.Report{}, err
	}

	s.publish(ctx, events.ReportUpvoted, r.ID.String(), events.ReportUpvotedPayload{
		ReportID:      r.ID.String(),
		UpvoteCount:   r.UpvoteCount,
		PriorityScore: r.PriorityScore,
	})
	return r, nil
}

// TransitionStatus moves a report through the lifecycle. note is required
// when newStatus is Resolved.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus domain.Status, note string) (domain.Report, error) {
	r, prev, err := s.workflow.Transition(id, newStatus, note)
	if err != nil {
		return domain.Report{}, err
	}

	s.publish(ctx, events.ReportStatusUpdated, r.ID.String(), events.ReportStatusUpdatedPayload{
		ReportID:  r.ID.String(),
		OldStatus: prev,
		NewStatus: r.Status,
		ChangedAt: time.Now(),
	})
	if r.Status == domain.StatusResolved {
		s.publish(ctx, events.ReportResolved, r.ID.String(), events.ReportResolvedPayload{
			ReportID:       r.ID.String(),
			Title:          r.Title,
			ResolutionNote: r.ResolutionNote,
			ResolvedAt:     time.Now(),
		})
	}
	return r, nil
}

// View returns the sorted, filtered report list for the dashboard table.
func (s *Service) View(q ranking.Query) []domain.Report {
	return ranking.View(s.store.All(), q)
}

// Get returns a single report by id.
func (s *Service) Get(id uuid.UUID) (domain.Report, error) {
	return s.store.Get(id)
}

// Count returns the total number of reports in the session.
func (s *Service) Count() int {
	return s.store.Len()
}

// Escalations derives the current escalation set. threshold <= 0 selects
// the configured default.
func (s *Service) Escalations(threshold float64) escalation.Result {
	if threshold <= 0 {
		threshold = s.cfg.Reports.EscalationThreshold
	}
	return escalation.Compute(s.store.All(), threshold)
}

// HeatmapPoints returns the weighted point set for the heatmap renderer.
func (s *Service) HeatmapPoints() []geo.WeightedPoint {
	return geo.WeightedPoints(s.store.All(), s.scorer.ScaleMax())
}

// Nearby returns unresolved reports within radiusM meters of origin,
// closest first. radiusM <= 0 selects the configured default.
func (s *Service) Nearby(origin domain.Location, radiusM float64) []geo.Neighbor {
	if radiusM <= 0 {
		radiusM = s.cfg.Reports.NearbyRadiusMeters
	}
	return geo.Nearby(s.store.All(), origin, radiusM)
}

func (s *Service) resolveLocation(ctx context.Context) domain.Location {
	if s.locator == nil {
		return DefaultLocation
	}
	lctx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()
	loc, err := s.locator.Locate(lctx)
	if err != nil || !loc.Valid() {
		log.Printf("[GEO] location lookup failed (%v), using default", err)
		return DefaultLocation
	}
	return loc
}

func (s *Service) publish(ctx context.Context, eventType, reportID string, payload interface{}) {
	event, err := events.NewEvent(eventType, reportID, payload)
	if err != nil {
		log.Printf("Error creating event: %v", err)
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Printf("Error publishing event: %v", err)
	}
}
