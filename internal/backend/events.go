package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// ListEventsWithDetails returns one window of the upcoming-events feed.
func (b *Backend) ListEventsWithDetails(ctx context.Context, p gateway.ListParams) (*model.EventPage, error) {
	limit, offset := clampWindow(p.Limit, p.Offset)

	events, total, err := b.events.ListEvents(ctx, repository.EventQuery{
		Now:      b.now(),
		Search:   strings.TrimSpace(p.Search),
		Category: strings.TrimSpace(p.Category),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: listing events: %w", err)
	}
	return &model.EventPage{Events: events, TotalCount: total}, nil
}

// GetEventWithDetails returns one aggregated event or apperror.ErrNotFound.
func (b *Backend) GetEventWithDetails(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperror.NotFound("event", id)
	}
	e, err := b.events.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("backend: getting event %s: %w", id, err)
	}
	return e, nil
}

// GetMyEvents returns the two independent lists for userID. Only the user
// themselves may read them.
func (b *Backend) GetMyEvents(ctx context.Context, userID string) (*model.MyEvents, error) {
	if err := requireSelf(ctx, userID, "view your events"); err != nil {
		return nil, err
	}

	now := b.now()
	hosting, err := b.events.ListHosting(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("backend: hosted events: %w", err)
	}
	attending, err := b.events.ListAttending(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("backend: attended events: %w", err)
	}
	return &model.MyEvents{Hosting: hosting, Attending: attending}, nil
}

// GetHostRating returns the host's average score, nil when unrated.
func (b *Backend) GetHostRating(ctx context.Context, hostID string) (*float64, error) {
	rating, err := b.profiles.HostRating(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("backend: host rating for %s: %w", hostID, err)
	}
	return rating, nil
}

// InsertEvent validates and stores a new event hosted by the caller.
func (b *Backend) InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := requireSelf(ctx, event.HostID, "create events"); err != nil {
		return nil, err
	}

	clean := *event
	clean.Title = strings.TrimSpace(clean.Title)
	clean.Description = strings.TrimSpace(clean.Description)
	clean.LocationName = strings.TrimSpace(clean.LocationName)
	clean.Category = strings.TrimSpace(clean.Category)
	if clean.ImageURL != nil {
		if u := strings.TrimSpace(*clean.ImageURL); u != "" {
			clean.ImageURL = &u
		} else {
			clean.ImageURL = nil
		}
	}
	clean.RegistrationCount = 0
	clean.HostFullName = ""
	clean.HostRating = nil

	if err := b.validateEvent(&clean); err != nil {
		return nil, err
	}

	if err := b.events.CreateEvent(ctx, &clean); err != nil {
		return nil, fmt.Errorf("backend: creating event: %w", err)
	}

	b.logger.Info("event created",
		slog.String("eventID", clean.ID),
		slog.String("hostID", clean.HostID),
		slog.Int("capacity", clean.Capacity),
	)

	created, err := b.events.GetEvent(ctx, clean.ID)
	if err != nil {
		return nil, fmt.Errorf("backend: reloading event %s: %w", clean.ID, err)
	}
	return created, nil
}

func (b *Backend) validateEvent(e *model.Event) error {
	required := []struct {
		field, value, label string
		max                 int
	}{
		{"title", e.Title, "title", MaxTitleLength},
		{"description", e.Description, "description", MaxDescriptionLength},
		{"location_name", e.LocationName, "location", MaxLocationLength},
		{"category", e.Category, "category", MaxCategoryLength},
	}
	for _, r := range required {
		if r.value == "" {
			return apperror.ValidationFailed(r.field, r.label+" is required")
		}
		if len(r.value) > r.max {
			return apperror.ValidationFailed(r.field,
				fmt.Sprintf("%s must be %d characters or less", r.label, r.max))
		}
	}
	if e.Capacity < 1 {
		return apperror.ValidationFailed("capacity", "capacity must be at least 1")
	}
	if !e.EventDate.After(b.now()) {
		return apperror.ValidationFailed("event_date", "event date must be in the future")
	}
	return nil
}
