package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"civicwatch/internal/domain"
)

// Event types published by the core.
const (
	ReportCreated       = "report.created"
	ReportUpvoted       = "report.upvoted"
	ReportStatusUpdated = "report.status.updated"
	ReportResolved      = "report.resolved"
	ReportEscalated     = "report.escalated"
)

// Event is the envelope every published event travels in.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	ReportID  string          `json:"report_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ReportCreatedPayload - published when a citizen submits a report.
type ReportCreatedPayload struct {
	ReportID      string          `json:"report_id"`
	Title         string          `json:"title"`
	Category      domain.Category `json:"category"`
	Type          string          `json:"type"`
	PriorityScore float64         `json:"priority_score"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReportUpvotedPayload - published when a citizen upvotes a report.
type ReportUpvotedPayload struct {
	ReportID      string  `json:"report_id"`
	UpvoteCount   int     `json:"upvote_count"`
	PriorityScore float64 `json:"priority_score"`
}

// ReportStatusUpdatedPayload - published on every successful transition.
type ReportStatusUpdatedPayload struct {
	ReportID  string        `json:"report_id"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	ChangedAt time.Time     `json:"changed_at"`
}

// ReportResolvedPayload - the celebratory signal: published only on
// transitions into Resolved, alongside the status.updated event.
type ReportResolvedPayload struct {
	ReportID       string    `json:"report_id"`
	Title          string    `json:"title"`
	ResolutionNote string    `json:"resolution_note"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// ReportEscalatedPayload - published when a report crosses the escalation
// threshold while unresolved.
type ReportEscalatedPayload struct {
	ReportID      string  `json:"report_id"`
	PriorityScore float64 `json:"priority_score"`
	Threshold     float64 `json:"threshold"`
}

// NewEvent creates an Event wrapping the given payload.
func NewEvent(eventType string, reportID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		ReportID:  reportID,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON bytes.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ParsePayload parses the payload into the given type.
func (e *Event) ParsePayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
