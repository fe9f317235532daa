package service

import (
	"context"
	"log/slog"

	"github.com/sakif/eventhub/internal/cache"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/session"
)

// userScoped are the cached operations whose answers depend on who is
// signed in.
var userScoped = []string{cache.OpRegistration, cache.OpMyEvents}

// AuthService signs users in and out of the session.Manager.
type AuthService struct {
	gw       gateway.AuthGateway
	sessions *session.Manager
	cache    *cache.Cache
	logger   *slog.Logger
}

func NewAuthService(gw gateway.AuthGateway, sessions *session.Manager, c *cache.Cache, logger *slog.Logger) *AuthService {
	return &AuthService{gw: gw, sessions: sessions, cache: c, logger: logger}
}

// SignIn authenticates and installs the session. A failed attempt leaves any
// existing session in place.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	sess, err := s.gw.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.start(ctx, sess)
	return sess, nil
}

// SignUp creates the account (and its profile) and signs in as it.
func (s *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	sess, err := s.gw.SignUp(ctx, email, password, fullName)
	if err != nil {
		return nil, err
	}
	s.start(ctx, sess)
	return sess, nil
}

// SignOut clears the session and everything cached on its behalf.
func (s *AuthService) SignOut(ctx context.Context) {
	s.sessions.Clear()
	s.cache.InvalidateOp(ctx, userScoped...)
}

func (s *AuthService) start(ctx context.Context, sess *model.Session) {
	s.cache.InvalidateOp(ctx, userScoped...)
	s.sessions.Set(sess)
	s.logger.Info("signed in", slog.String("user_id", sess.UserID))
}
