package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/session"
)

// ProfileBackend is the part of the gateway ProfileService needs.
type ProfileBackend interface {
	gateway.ProfileGateway
	GetHostRating(ctx context.Context, hostID string) (*float64, error)
}

type ProfileService struct {
	gw       ProfileBackend
	sessions *session.Manager
	cache    *cache.Cache
	logger   *slog.Logger
}

func NewProfileService(gw ProfileBackend, sessions *session.Manager, c *cache.Cache, logger *slog.Logger) *ProfileService {
	return &ProfileService{gw: gw, sessions: sessions, cache: c, logger: logger}
}

// GetProfile returns the profile with its read-only rating aggregates.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return cache.Query(ctx, s.cache, cache.OpProfile, []any{userID}, func(ctx context.Context) (*model.Profile, error) {
		return s.gw.GetProfileDetails(ctx, userID)
	})
}

// UpdateProfile replaces all three editable fields. Interests are trimmed and
// de-duplicated first; a nil slice clears them.
//
// The host's name is embedded in every event they host, so the event caches
// are dropped along with the profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, fullName, bio string, interests []string) error {
	if _, err := s.sessions.UserID(); err != nil {
		return err
	}

	err := s.gw.UpdateProfile(ctx, &model.Profile{
		ID:        userID,
		FullName:  fullName,
		Bio:       bio,
		Interests: model.NormalizeInterests(interests),
	})
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	s.cache.Invalidate(ctx, cache.OpProfile, userID)
	s.cache.InvalidateOp(ctx, cache.OpEvent, cache.OpFeed, cache.OpMyEvents)
	return nil
}

// HostRating is the host's average rating, nil when nobody has rated them.
func (s *ProfileService) HostRating(ctx context.Context, hostID string) (*float64, error) {
	return s.gw.GetHostRating(ctx, hostID)
}
