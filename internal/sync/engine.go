// Package sync writes extracted events into the external calendar
// exactly once per logical event.
//
// The external API has no upsert-by-content primitive, so idempotency
// rests entirely on deterministic event IDs (internal/eventid): a
// re-run produces the same IDs and re-insertion surfaces as "already
// exists" instead of a duplicate. Writes run in two phases:
//
//	Phase 1 walks the input in order and attempts one insert per event.
//	Conflicts are deferred; any other failure fixes that event's
//	outcome to skipped.
//
//	Phase 2 reads each deferred event's existing object. A cancelled
//	object is reactivated in place (the API reserves IDs forever, so
//	delete-and-recreate is not available) and counts as inserted; an
//	active object is a true duplicate and counts as skipped.
package sync

import (
	"context"
	"errors"
	"fmt"

	"gomical/internal/calendar"
	"gomical/internal/eventid"
	appLog "gomical/internal/log"
	"gomical/internal/model"
)

// CalendarAPI is the slice of the calendar client the engine needs.
type CalendarAPI interface {
	Insert(ctx context.Context, ev calendar.Event) error
	Get(ctx context.Context, eventID string) (calendar.Event, error)
	Update(ctx context.Context, eventID string, ev calendar.Event) error
}

// Result is the outcome summary of one synchronization run.
// Inserted + Skipped always equals the number of input events.
type Result struct {
	Inserted int
	Skipped  int
}

// Options tune presentation details of written events.
type Options struct {
	// ReminderMinutes configures the popup reminder on each event.
	// Zero disables the override and leaves the calendar's defaults.
	ReminderMinutes int
}

// Engine executes the two-phase idempotent batch write. It holds no
// persistent state; the external calendar is the only thing mutated.
type Engine struct {
	api          CalendarAPI
	insertPacer  Pacer
	resolvePacer Pacer
	opts         Options
}

// NewEngine builds an engine around one per-run calendar client.
// insertPacer spaces Phase 1 attempts; resolvePacer spaces Phase 2
// items, which issue up to two calls each.
func NewEngine(api CalendarAPI, insertPacer, resolvePacer Pacer, opts Options) *Engine {
	return &Engine{
		api:          api,
		insertPacer:  insertPacer,
		resolvePacer: resolvePacer,
		opts:         opts,
	}
}

// deferred is an event whose insert hit a conflict, carried to Phase 2.
type deferred struct {
	event model.CalendarEvent
	key   string
}

// Sync writes the events in input order and returns the counts.
// Per-event failures never abort the batch; only context cancellation
// does, and then the error is returned to the caller.
func (e *Engine) Sync(ctx context.Context, events []model.CalendarEvent, docHash string) (Result, error) {
	var res Result

	// Phase 1: bulk insert, strictly sequential.
	conflicts := make([]deferred, 0)
	for i, ev := range events {
		key := eventid.ComputeKey(ev.Date, ev.Title)

		err := e.api.Insert(ctx, e.buildEvent(ev, key, docHash))
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, calendar.ErrConflict):
			conflicts = append(conflicts, deferred{event: ev, key: key})
		default:
			// Non-conflict errors are not retried within this run.
			appLog.Error("event insert failed", err, "key", key, "date", ev.Date)
			res.Skipped++
		}

		// Pace between attempts; no delay after the final item.
		if i < len(events)-1 {
			if err := e.insertPacer.Pause(ctx); err != nil {
				return res, fmt.Errorf("sync cancelled during insert phase: %w", err)
			}
		}
	}

	// Phase 2: conflict resolution, its own coarser pacing.
	for i, d := range conflicts {
		if e.resolveConflict(ctx, d, docHash) {
			res.Inserted++
		} else {
			res.Skipped++
		}

		if i < len(conflicts)-1 {
			if err := e.resolvePacer.Pause(ctx); err != nil {
				return res, fmt.Errorf("sync cancelled during resolve phase: %w", err)
			}
		}
	}

	appLog.Info("sync completed",
		"events", len(events),
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"conflicts", len(conflicts),
	)
	return res, nil
}

// resolveConflict inspects the object already stored at the event's key
// and reports whether the event counts as inserted.
func (e *Engine) resolveConflict(ctx context.Context, d deferred, docHash string) bool {
	existing, err := e.api.Get(ctx, d.key)
	if err != nil {
		appLog.Error("conflict read failed", err, "key", d.key)
		return false
	}

	if existing.Status != calendar.StatusCancelled {
		// Active object: a duplicate of a prior run (or an unrelated
		// event at the same key). Leave it untouched.
		return false
	}

	// The user deleted the prior entry, but the API keeps the ID
	// reserved. Reactivate it with the current event's fields; from the
	// user's perspective this is a fresh registration.
	ev := e.buildEvent(d.event, d.key, docHash)
	ev.Status = calendar.StatusConfirmed
	if err := e.api.Update(ctx, d.key, ev); err != nil {
		appLog.Error("conflict reactivation failed", err, "key", d.key)
		return false
	}
	return true
}

// buildEvent assembles the wire event. The stored ID comes from the
// undecorated title; only the displayed summary and description carry
// decoration (category emoji, provenance note with the truncated
// document hash).
func (e *Engine) buildEvent(ev model.CalendarEvent, key, docHash string) calendar.Event {
	out := calendar.Event{
		ID:      key,
		Summary: calendar.DecorateTitle(ev.Title),
		Start:   &calendar.EventDate{Date: ev.Date},
		End:     &calendar.EventDate{Date: ev.Date},
	}

	provenance := "Registered by gomical"
	if docHash != "" {
		provenance += fmt.Sprintf(" (PDF: %s...)", shortHash(docHash))
	}
	if ev.Description != "" {
		out.Description = ev.Description + "\n\n" + provenance
	} else {
		out.Description = provenance
	}

	if e.opts.ReminderMinutes > 0 {
		out.Reminders = &calendar.Reminders{
			UseDefault: false,
			Overrides: []calendar.ReminderOverride{
				{Method: "popup", Minutes: e.opts.ReminderMinutes},
			},
		}
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}
