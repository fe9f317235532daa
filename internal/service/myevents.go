package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

// MyEventsService serves the "hosting" and "attending" lists of a user.
type MyEventsService struct {
	events gateway.EventGateway
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewMyEventsService(events gateway.EventGateway, c *cache.Cache, logger *slog.Logger) *MyEventsService {
	return &MyEventsService{events: events, cache: c, logger: logger, now: time.Now}
}

// GetMyEvents returns the upcoming events userID hosts and attends, each
// ascending by date. The lists are independent: an event the user hosts and
// registered for appears in both. A backend failure is logged and yields two
// empty lists.
func (s *MyEventsService) GetMyEvents(ctx context.Context, userID string) (hosting, attending []model.Event) {
	mine, err := s.FetchMyEvents(ctx, userID)
	if err != nil {
		s.logger.Warn("my events unavailable, showing none",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []model.Event{}, []model.Event{}
	}
	return mine.Hosting, mine.Attending
}

// FetchMyEvents is GetMyEvents that reports failure instead of hiding it.
func (s *MyEventsService) FetchMyEvents(ctx context.Context, userID string) (*model.MyEvents, error) {
	mine, err := cache.Query(ctx, s.cache, cache.OpMyEvents, []any{userID}, func(ctx context.Context) (*model.MyEvents, error) {
		return s.events.GetMyEvents(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	hosting, _ := upcoming(mine.Hosting, now)
	attending, _ := upcoming(mine.Attending, now)
	return &model.MyEvents{Hosting: hosting, Attending: attending}, nil
}
