// Package repository declares the storage interfaces the backend depends on.
//
// The backend package only ever sees these interfaces; internal/repository/sqlite
// is the one real implementation and tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/eventhub/internal/model"
)

// EventQuery selects a window of the event feed.
//
// Now is the query time: only events with event_date >= Now are eligible.
// Search is matched case-insensitively as a substring of title, description or
// category; Category must match exactly. Empty strings impose no filter.
type EventQuery struct {
	Now      time.Time
	Search   string
	Category string
	Limit    int
	Offset   int
}

// EventRepository stores events and serves the aggregated event views.
// Every Event it returns carries RegistrationCount, HostFullName and HostRating.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	// ListEvents returns the window and the size of the whole filtered set.
	ListEvents(ctx context.Context, q EventQuery) ([]model.Event, int, error)
	ListHosting(ctx context.Context, userID string, now time.Time) ([]model.Event, error)
	ListAttending(ctx context.Context, userID string, now time.Time) ([]model.Event, error)
}

type RegistrationRepository interface {
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	// Register must refuse, atomically, once the event has reached capacity.
	Register(ctx context.Context, eventID, userID string) (*model.Registration, error)
	Unregister(ctx context.Context, eventID, userID string) error
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	HostRating(ctx context.Context, hostID string) (*float64, error)
}

type AccountRepository interface {
	// CreateAccount inserts the account and its profile in one transaction.
	CreateAccount(ctx context.Context, account *model.Account, profile *model.Profile) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

type RatingRepository interface {
	CreateRating(ctx context.Context, rating *model.Rating) error
}
