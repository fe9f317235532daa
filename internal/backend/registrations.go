package backend

import (
	"context"
	"fmt"
	"log/slog"
)

// IsRegistered reports whether userID holds a registration for eventID.
func (b *Backend) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if err := requireSelf(ctx, userID, "check registrations"); err != nil {
		return false, err
	}
	ok, err := b.registrations.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("backend: registration status: %w", err)
	}
	return ok, nil
}

// InsertRegistration registers userID for eventID.
//
// Capacity and uniqueness are decided by the store in one atomic step; a
// refusal comes back as apperror.ErrConflict carrying the reason
// ("event is full", "already registered for this event") unchanged.
func (b *Backend) InsertRegistration(ctx context.Context, eventID, userID string) error {
	if err := requireSelf(ctx, userID, "register"); err != nil {
		return err
	}

	if _, err := b.registrations.Register(ctx, eventID, userID); err != nil {
		b.logger.Info("registration refused",
			slog.String("eventID", eventID),
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("backend: registering: %w", err)
	}

	b.logger.Info("registered", slog.String("eventID", eventID), slog.String("userID", userID))
	return nil
}

// DeleteRegistration removes userID's registration for eventID.
// apperror.ErrNotFound means there was none; nothing changes in that case.
func (b *Backend) DeleteRegistration(ctx context.Context, eventID, userID string) error {
	if err := requireSelf(ctx, userID, "unregister"); err != nil {
		return err
	}

	if err := b.registrations.Unregister(ctx, eventID, userID); err != nil {
		return fmt.Errorf("backend: unregistering: %w", err)
	}

	b.logger.Info("unregistered", slog.String("eventID", eventID), slog.String("userID", userID))
	return nil
}
