package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

// FeedQuery selects one page of the feed. Empty Search and Category mean no
// filter; zero Limit means the backend default.
type FeedQuery struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// FeedService serves the upcoming-events feed.
type FeedService struct {
	events gateway.EventGateway
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewFeedService(events gateway.EventGateway, c *cache.Cache, logger *slog.Logger) *FeedService {
	return &FeedService{events: events, cache: c, logger: logger, now: time.Now}
}

// ListEvents returns one page of upcoming events, ascending by date, and the
// size of the whole filtered set. A backend failure is logged and yields
// (empty, 0).
func (s *FeedService) ListEvents(ctx context.Context, q FeedQuery) ([]model.Event, int) {
	page, err := s.FetchEvents(ctx, q)
	if err != nil {
		s.logger.Warn("feed unavailable, showing no events", slog.String("error", err.Error()))
		return []model.Event{}, 0
	}
	return page.Events, page.TotalCount
}

// FetchEvents is ListEvents that reports failure instead of hiding it.
//
// WHY FILTER AGAIN AFTER THE CACHE?
// The backend only returns events that have not started, but a cached page
// can outlive an event's start time. Filtering on the way out keeps the feed
// future-only no matter how old the entry is, and TotalCount drops by the
// same amount so "N events" matches what is shown.
func (s *FeedService) FetchEvents(ctx context.Context, q FeedQuery) (*model.EventPage, error) {
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)

	page, err := cache.Query(ctx, s.cache, cache.OpFeed, []any{q.Search, q.Category, q.Limit, q.Offset},
		func(ctx context.Context) (*model.EventPage, error) {
			return s.events.ListEventsWithDetails(ctx, gateway.ListParams{
				Limit:    q.Limit,
				Offset:   q.Offset,
				Search:   q.Search,
				Category: q.Category,
			})
		})
	if err != nil {
		return nil, err
	}

	events, dropped := upcoming(page.Events, s.now())
	return &model.EventPage{Events: events, TotalCount: max(page.TotalCount-dropped, 0)}, nil
}
