// Package gateway is the contract between the client models and the backend.
//
// Two implementations exist: internal/backend runs the rules in-process over
// SQLite (and sits behind the HTTP server), and internal/gateway/remote speaks
// to that server over HTTP. The client models only ever see these interfaces.
//
// Identity: operations that act on behalf of a user (registrations, profile
// updates, event creation, my-events) take the user ID explicitly, and the
// implementation refuses with apperror.ErrForbidden when it does not match the
// authenticated caller, or apperror.ErrUnauthenticated when there is none.
package gateway

import (
	"context"

	"github.com/sakif/eventhub/internal/model"
)

// ListParams selects one window of the event feed. Empty Search and Category
// impose no filter.
type ListParams struct {
	Limit    int
	Offset   int
	Search   string
	Category string
}

type AuthGateway interface {
	Authenticate(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error)
}

type EventGateway interface {
	ListEventsWithDetails(ctx context.Context, p ListParams) (*model.EventPage, error)
	GetEventWithDetails(ctx context.Context, id string) (*model.Event, error)
	GetMyEvents(ctx context.Context, userID string) (*model.MyEvents, error)
	GetHostRating(ctx context.Context, hostID string) (*float64, error)
	// InsertEvent creates event.HostID's event and returns it aggregated.
	InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error)
}

type RegistrationGateway interface {
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	InsertRegistration(ctx context.Context, eventID, userID string) error
	DeleteRegistration(ctx context.Context, eventID, userID string) error
}

type ProfileGateway interface {
	GetProfileDetails(ctx context.Context, userID string) (*model.Profile, error)
	// UpdateProfile replaces FullName, Bio and Interests of profile.ID.
	UpdateProfile(ctx context.Context, profile *model.Profile) error
}

// Gateway is the whole backend surface.
type Gateway interface {
	AuthGateway
	EventGateway
	RegistrationGateway
	ProfileGateway
}
