// Package service contains the client-side models: the event feed, event
// detail and registration, my-events, profiles, and sign-in.
//
// THE CLIENT'S LAYERS:
//
//	caller (UI, CLI, tests) → service → cache → gateway → backend
//
// Services only know the gateway interfaces, never HTTP or SQL. In production
// the gateway is internal/gateway/remote; in tests it is an in-memory fake.
//
// READS AND WRITES FAIL DIFFERENTLY:
// FeedService.ListEvents and MyEventsService.GetMyEvents swallow backend
// errors and return empty results; their Fetch* twins return the error for
// callers that need to tell "nothing found" from "could not load". Every
// write returns its error, so a failed registration or profile save is never
// mistaken for a successful one.
//
// NO STALE READ AFTER WRITE:
// Every successful mutation invalidates the cached queries it made stale
// before it returns, so the next read (from this session) refetches.
package service

import (
	"time"

	"github.com/sakif/eventhub/internal/model"
)

// upcoming returns the events at or after now, preserving order, and how many
// were dropped. Cached pages can outlive an event's start time.
func upcoming(events []model.Event, now time.Time) ([]model.Event, int) {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.EventDate.Before(now) {
			out = append(out, e)
		}
	}
	return out, len(events) - len(out)
}
