// Package model defines the data structures used throughout the application.
//
// The same structs travel through every layer: the SQLite store scans into
// them, the HTTP handlers encode them as JSON, and the client models cache and
// return them. The json tags therefore ARE the wire format of the backend API.
package model

import "time"

// Categories is the built-in category vocabulary offered when creating an
// event. The vocabulary is open-ended: the backend accepts any non-empty
// category, these are just the suggested ones.
var Categories = []string{
	"Sports",
	"Music",
	"Art",
	"Food",
	"Tech",
	"Social",
	"Education",
	"Other",
}

// Event is a fully aggregated event record.
//
// The first block of fields is what the host typed in. The second block is
// derived by the backend's aggregation queries and is never computed on the
// client: RegistrationCount is always the authoritative row count of
// event_registrations for this event at fetch time.
//
// WHY *string AND *float64?
// ImageURL is genuinely optional and HostRating is NULL when the host has no
// ratings yet. A pointer keeps "absent" distinct from "" or 0.0 and encodes as
// JSON null.
type Event struct {
	ID           string    `json:"id"`
	HostID       string    `json:"host_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	EventDate    time.Time `json:"event_date"`
	LocationName string    `json:"location_name"`
	Category     string    `json:"category"`
	Capacity     int       `json:"capacity"`
	ImageURL     *string   `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	RegistrationCount int      `json:"registration_count"`
	HostFullName      string   `json:"host_full_name"`
	HostRating        *float64 `json:"host_rating"`
}

// IsFull reports whether the event has no open spots left.
func (e *Event) IsFull() bool {
	return e.RegistrationCount >= e.Capacity
}

// SpotsLeft is the number of registrations still accepted, never negative.
func (e *Event) SpotsLeft() int {
	if left := e.Capacity - e.RegistrationCount; left > 0 {
		return left
	}
	return 0
}

// EventPage is one window of the event feed.
// TotalCount is the size of the whole filtered set, not len(Events).
type EventPage struct {
	Events     []Event `json:"events"`
	TotalCount int     `json:"total_count"`
}

// MyEvents holds a user's two independent event lists. An event the user
// hosts AND registered for appears in both.
type MyEvents struct {
	Hosting   []Event `json:"hosting"`
	Attending []Event `json:"attending"`
}

// EventDraft is the host-supplied part of a new event.
type EventDraft struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	EventDate    time.Time `json:"event_date"`
	LocationName string    `json:"location_name"`
	Category     string    `json:"category"`
	Capacity     int       `json:"capacity"`
	ImageURL     *string   `json:"image_url,omitempty"`
}

// Registration is the join row between an event and an attendee.
// There is at most one per (EventID, UserID); it is never updated, only
// created and deleted.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating is one attendee's score for a host, given for a specific event.
// Ratings are only read in aggregate (HostRating, TotalRatings).
type Rating struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	HostID    string    `json:"host_id"`
	RaterID   string    `json:"rater_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
