// Package backend holds the server-side business rules of eventhub.
//
// Backend implements gateway.Gateway on top of the repository interfaces:
//
//	handler (HTTP) → Backend (rules, authorization) → repository (SQLite)
//
// Every rule that must hold no matter which client is talking lives here:
// input validation, row-level authorization (a user only writes their own
// rows), list window clamping, and the mapping of store refusals to
// apperror kinds.
//
// CALLER IDENTITY:
// The authenticated user is read from the context (auth.UserIDFromContext),
// where auth.RequireAuth put it. Methods that act on a user's rows compare it
// with the userID argument.
package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/repository"
)

// List window bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Field limits for user input.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxLocationLength    = 200
	MaxCategoryLength    = 50
	MaxFullNameLength    = 100
	MaxBioLength         = 1000
	MaxInterests         = 30
)

var _ gateway.Gateway = (*Backend)(nil)

// Repositories groups the stores Backend needs. *sqlite.DB satisfies all of
// them; tests may mix in fakes.
type Repositories struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Profiles      repository.ProfileRepository
	Accounts      repository.AccountRepository
}

type Backend struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	profiles      repository.ProfileRepository
	accounts      repository.AccountRepository
	tokens        *auth.TokenService
	passwords     *auth.PasswordService
	logger        *slog.Logger
	now           func() time.Time
}

func New(repos Repositories, tokens *auth.TokenService, passwords *auth.PasswordService, logger *slog.Logger) *Backend {
	return &Backend{
		events:        repos.Events,
		registrations: repos.Registrations,
		profiles:      repos.Profiles,
		accounts:      repos.Accounts,
		tokens:        tokens,
		passwords:     passwords,
		logger:        logger,
		now:           time.Now,
	}
}

// caller returns the authenticated user on ctx.
func caller(ctx context.Context) (string, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", apperror.Unauthenticated("sign in required")
	}
	return id, nil
}

// requireSelf allows the call only when the authenticated user is userID.
func requireSelf(ctx context.Context, userID, action string) error {
	id, err := caller(ctx)
	if err != nil {
		return err
	}
	if userID == "" || id != userID {
		return apperror.Forbidden("you can only " + action + " for yourself")
	}
	return nil
}

// clampWindow applies the list defaults: limit in [1, MaxListLimit]
// (0 means DefaultListLimit) and a non-negative offset.
func clampWindow(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
