package main

import (
	"context"
	"log"
	"time"

	"civicwatch/internal/events"
)

// startEscalationWatcher periodically rederives the escalation set and
// publishes report.escalated for ids that newly crossed the threshold. The
// set itself is never cached for reads; this loop only tracks which ids it
// already announced.
func startEscalationWatcher(ctx context.Context, app *App) {
	log.Println("[WATCHER] Starting escalation watcher...")
	ticker := time.NewTicker(app.cfg.Reports.WatchInterval())
	defer ticker.Stop()

	announced := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			log.Println("[WATCHER] Escalation watcher stopped")
			return
		case <-ticker.C:
			checkEscalations(ctx, app, announced)
		}
	}
}

func checkEscalations(ctx context.Context, app *App, announced map[string]bool) {
	threshold := app.cfg.Reports.EscalationThreshold
	result := app.svc.Escalations(threshold)

	current := make(map[string]bool, len(result.AffectedIDs))
	for _, id := range result.AffectedIDs {
		current[id.String()] = true
	}

	var published int
	for _, id := range result.AffectedIDs {
		key := id.String()
		if announced[key] {
			continue
		}
		announced[key] = true

		report, err := app.svc.Get(id)
		if err != nil {
			continue
		}

		payload := events.ReportEscalatedPayload{
			ReportID:      key,
			PriorityScore: report.PriorityScore,
			Threshold:     threshold,
		}
		event, err := events.NewEvent(events.ReportEscalated, key, payload)
		if err != nil {
			log.Printf("[WATCHER] Error creating event: %v", err)
			continue
		}
		if err := app.bus.Publish(ctx, event); err != nil {
			log.Printf("[WATCHER] Error publishing escalation event: %v", err)
			continue
		}
		published++
	}

	// a report that dropped back below the threshold (or was resolved)
	// may be announced again if it re-escalates later
	for key := range announced {
		if !current[key] {
			delete(announced, key)
		}
	}

	if published > 0 {
		log.Printf("[WATCHER] %d report(s) escalated to oversight (threshold %.0f)", published, threshold)
	}
}
