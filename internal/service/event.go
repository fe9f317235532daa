package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/session"
)

// EventBackend is the part of the gateway EventService needs.
type EventBackend interface {
	gateway.EventGateway
	gateway.RegistrationGateway
}

// EventService serves event detail, registration and event creation.
type EventService struct {
	gw       EventBackend
	sessions *session.Manager
	cache    *cache.Cache
	logger   *slog.Logger
}

func NewEventService(gw EventBackend, sessions *session.Manager, c *cache.Cache, logger *slog.Logger) *EventService {
	return &EventService{gw: gw, sessions: sessions, cache: c, logger: logger}
}

// Detail is everything the event page shows.
type Detail struct {
	Event      *model.Event
	Registered bool
	// CanRegister is true when the register/unregister toggle is usable:
	// the viewer is already registered, or there is a spot left.
	CanRegister bool
	SignedIn    bool
}

// GetEvent returns the aggregated event, or an ErrNotFound error.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return cache.Query(ctx, s.cache, cache.OpEvent, []any{id}, func(ctx context.Context) (*model.Event, error) {
		return s.gw.GetEventWithDetails(ctx, id)
	})
}

// IsRegistered reports whether userID holds a registration for eventID.
func (s *EventService) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	return cache.Query(ctx, s.cache, cache.OpRegistration, []any{eventID, userID}, func(ctx context.Context) (bool, error) {
		return s.gw.IsRegistered(ctx, eventID, userID)
	})
}

// LoadDetail fetches the event and the viewer's registration status
// concurrently. Anonymous viewers are reported as not registered.
func (s *EventService) LoadDetail(ctx context.Context, eventID string) (*Detail, error) {
	d := &Detail{}
	userID, err := s.sessions.UserID()
	d.SignedIn = err == nil

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.GetEvent(gctx, eventID)
		if err != nil {
			return err
		}
		d.Event = e
		return nil
	})
	if d.SignedIn {
		g.Go(func() error {
			ok, err := s.IsRegistered(gctx, eventID, userID)
			if err != nil {
				return fmt.Errorf("loading registration status: %w", err)
			}
			d.Registered = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.CanRegister = d.Registered || !d.Event.IsFull()
	return d, nil
}

// SetRegistration registers (desired=true) or unregisters userID for
// eventID.
//
// WHY CONFIRMED INVALIDATION (not an optimistic flip)?
// The toggle only changes after the backend has answered. On success we
// drop every cached view that shows this registration: the event (its
// registration_count), the status for (event, user), every feed page and
// every my-events result. The next read of any of them goes back to the
// backend, so the user never sees their own write undone by a stale entry.
// Had we flipped the cached values in place, a failure would need a
// rollback, and a rollback racing a refetch is exactly how stale reads sneak
// back in.
//
// WHY A PRE-CHECK, IF THE BACKEND CHECKS ANYWAY?
// Registering first re-reads the event straight from the backend (not from
// the cache) and refuses with "event is full" when no spot is left, without
// attempting a write. Two users can still pass that check for the last spot
// at the same moment. The backend's transactional capacity check is the
// only arbiter; the loser gets its refusal back unchanged.
//
// FAILURES:
// A network or server failure leaves the cache alone: nothing changed, so
// nothing cached is wrong. A conflict ("event is full", "already registered
// for this event") or a not-found on unregister is different. The backend
// has just told us our cached count or status was wrong, so both the event
// and the (event, user) status are dropped and the next read shows the truth.
func (s *EventService) SetRegistration(ctx context.Context, eventID, userID string, desired bool) error {
	if _, err := s.sessions.UserID(); err != nil {
		return err
	}

	var err error
	if desired {
		err = s.register(ctx, eventID, userID)
	} else {
		err = s.gw.DeleteRegistration(ctx, eventID, userID)
	}

	if err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			s.cache.Invalidate(ctx, cache.OpEvent, eventID)
			s.cache.Invalidate(ctx, cache.OpRegistration, eventID, userID)
		}
		s.logger.Info("registration change failed",
			slog.String("event_id", eventID),
			slog.Bool("register", desired),
			slog.String("reason", apperror.Message(err)),
		)
		return err
	}

	s.cache.Invalidate(ctx, cache.OpEvent, eventID)
	s.cache.Invalidate(ctx, cache.OpRegistration, eventID, userID)
	s.cache.InvalidateOp(ctx, cache.OpFeed, cache.OpMyEvents)
	return nil
}

func (s *EventService) register(ctx context.Context, eventID, userID string) error {
	e, err := s.gw.GetEventWithDetails(ctx, eventID)
	if err != nil {
		return err
	}
	if e.IsFull() {
		return apperror.ConstraintViolation("event is full")
	}
	return s.gw.InsertRegistration(ctx, eventID, userID)
}

// CreateEvent creates an event hosted by the signed-in user. The backend
// validates the draft; its validation errors are returned as is.
func (s *EventService) CreateEvent(ctx context.Context, draft model.EventDraft) (*model.Event, error) {
	hostID, err := s.sessions.UserID()
	if err != nil {
		return nil, err
	}

	created, err := s.gw.InsertEvent(ctx, &model.Event{
		HostID:       hostID,
		Title:        draft.Title,
		Description:  draft.Description,
		EventDate:    draft.EventDate.UTC().Truncate(time.Millisecond),
		LocationName: draft.LocationName,
		Category:     draft.Category,
		Capacity:     draft.Capacity,
		ImageURL:     draft.ImageURL,
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateOp(ctx, cache.OpFeed, cache.OpMyEvents)
	return created, nil
}
