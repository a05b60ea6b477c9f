package main

import (
	"fmt"
	"sync"
	"time"

	"civicwatch/internal/events"
)

const (
	inboxLimit = 50

	// notificationsGroup is the consumer group the inbox reads the shared
	// Redis stream under when the bus is Redis-backed.
	notificationsGroup = "civicwatch-notifications"
)

// notification is one dashboard inbox entry derived from a report event.
type notification struct {
	ReportID  string    `json:"report_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// inbox collects human-readable notifications for the officials' dashboard
// from the event stream. Bounded; oldest entries fall off.
type inbox struct {
	mu    sync.Mutex
	items []notification
}

func newInbox() *inbox {
	return &inbox{}
}

// handle adapts consume to the stream consumer signature. Events the inbox
// doesn't care about are still acknowledged.
func (in *inbox) handle(event *events.Event) error {
	in.consume(event)
	return nil
}

func (in *inbox) consume(event *events.Event) {
	var msg string
	switch event.EventType {
	case events.ReportCreated:
		var p events.ReportCreatedPayload
		if event.ParsePayload(&p) != nil {
			return
		}
		msg = fmt.Sprintf("New %s report: %s (score %.0f)", p.Category, p.Title, p.PriorityScore)
	case events.ReportEscalated:
		var p events.ReportEscalatedPayload
		if event.ParsePayload(&p) != nil {
			return
		}
		msg = fmt.Sprintf("Report escalated to oversight (score %.0f >= %.0f)", p.PriorityScore, p.Threshold)
	case events.ReportResolved:
		var p events.ReportResolvedPayload
		if event.ParsePayload(&p) != nil {
			return
		}
		msg = fmt.Sprintf("Resolved: %s (%s)", p.Title, p.ResolutionNote)
	default:
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = append(in.items, notification{
		ReportID:  event.ReportID,
		Message:   msg,
		CreatedAt: event.Timestamp,
	})
	if len(in.items) > inboxLimit {
		in.items = in.items[len(in.items)-inboxLimit:]
	}
}

// Recent returns the newest notifications first.
func (in *inbox) Recent() []notification {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]notification, 0, len(in.items))
	for i := len(in.items) - 1; i >= 0; i-- {
		out = append(out, in.items[i])
	}
	return out
}
