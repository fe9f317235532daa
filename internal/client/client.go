// Package client assembles the client-side models from configuration.
//
// It is the composition root of the client, the way internal/server is for
// the backend:
//
//	config.Client → remote gateway (tokens from session.Manager)
//	              → cache (Redis when REDIS_URL is set, memory otherwise)
//	              → services
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/gateway/remote"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/service"
	"github.com/sakif/eventhub/internal/session"
	"github.com/sakif/eventhub/internal/view"
)

// Client exposes one instance of every client model, sharing a session and a
// cache.
type Client struct {
	Sessions *session.Manager
	Auth     *service.AuthService
	Feed     *service.FeedService
	Events   *service.EventService
	MyEvents *service.MyEventsService
	Profiles *service.ProfileService

	rdb         *redis.Client
	unsubscribe func()
}

// New connects to Redis when cfg.RedisURL is set and wires the services.
func New(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*Client, error) {
	c := &Client{Sessions: session.NewManager()}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		c.rdb = rdb
		store = cache.NewRedisStore(rdb)
	}
	qc := cache.New(store, cfg.CacheTTL, logger)

	gw := remote.New(cfg.BaseURL, c.Sessions,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		remote.WithLogger(logger),
	)

	c.Auth = service.NewAuthService(gw, c.Sessions, qc, logger)
	c.Feed = service.NewFeedService(gw, qc, logger)
	c.Events = service.NewEventService(gw, c.Sessions, qc, logger)
	c.MyEvents = service.NewMyEventsService(gw, qc, logger)
	c.Profiles = service.NewProfileService(gw, c.Sessions, qc, logger)

	// Expiry clears the session without going through SignOut; drop the
	// user's cached answers then too.
	c.unsubscribe = c.Sessions.Subscribe(func(s *model.Session) {
		if s == nil {
			qc.InvalidateOp(context.Background(), cache.OpRegistration, cache.OpMyEvents)
		}
	})

	logger.Info("client ready",
		slog.String("backend", cfg.BaseURL),
		slog.Bool("redis_cache", c.rdb != nil),
	)
	return c, nil
}

// NewView opens a view scope for one screen's worth of loads.
func (c *Client) NewView(ctx context.Context) *view.Scope {
	return view.NewScope(ctx)
}

// Close releases the Redis connection, if any.
func (c *Client) Close() error {
	c.unsubscribe()
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
