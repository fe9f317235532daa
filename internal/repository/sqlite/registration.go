package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.RegistrationRepository = (*DB)(nil)

// Reasons shown to the user verbatim when a registration is refused.
const (
	ReasonEventFull         = "event is full"
	ReasonAlreadyRegistered = "already registered for this event"
)

// IsRegistered reports whether a registration row exists for the pair.
func (db *DB) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_registrations WHERE event_id = ? AND user_id = ?)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking registration %s/%s: %w", eventID, userID, err)
	}
	return exists, nil
}

// Register adds userID to the event's attendees.
//
// HOW THE LAST SPOT IS DECIDED:
// The INSERT only happens while the event still has room. The capacity test
// lives in the INSERT's own WHERE clause:
//
//	INSERT ... SELECT ... WHERE (SELECT COUNT(*) ...) < capacity
//
// so the count and the write are one statement inside one transaction, and
// with a single connection (see New) no other registration can slip between
// them. Two users racing for the last spot cannot both get it. The loser's
// INSERT affects zero rows and sees ConstraintViolation(ReasonEventFull).
//
// WHY CHECK "already registered" BEFORE THE INSERT?
// The UNIQUE (event_id, user_id) index would catch a duplicate anyway, but
// on a full event the capacity clause would refuse first and the user would
// be told "event is full" about an event they already hold a spot in. Asking
// first gives the accurate reason. The unique violation branch below stays as
// the backstop for a second writer that bypasses this method.
//
// Errors:
//   - apperror.ErrNotFound: no event with eventID
//   - apperror.ErrConflict: ReasonAlreadyRegistered or ReasonEventFull
func (db *DB) Register(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning registration: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	err = tx.QueryRowContext(ctx, `SELECT capacity FROM events WHERE id = ?`, eventID).Scan(&capacity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", eventID)
		}
		return nil, fmt.Errorf("sqlite: loading event %s: %w", eventID, err)
	}

	var already bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_registrations WHERE event_id = ? AND user_id = ?)`,
		eventID, userID,
	).Scan(&already)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking registration %s/%s: %w", eventID, userID, err)
	}
	if already {
		return nil, apperror.ConstraintViolation(ReasonAlreadyRegistered)
	}

	reg := &model.Registration{
		ID:        xid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: fromMillis(toMillis(db.now())),
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO event_registrations (id, event_id, user_id, created_at)
		 SELECT ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM event_registrations WHERE event_id = ?) < ?`,
		reg.ID, reg.EventID, reg.UserID, toMillis(reg.CreatedAt),
		eventID, capacity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.ConstraintViolation(ReasonAlreadyRegistered)
		}
		return nil, fmt.Errorf("sqlite: inserting registration %s/%s: %w", eventID, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.ConstraintViolation(ReasonEventFull)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing registration: %w", err)
	}
	return reg, nil
}

// Unregister removes the pair's registration.
// Returns apperror.ErrNotFound when there was nothing to remove.
func (db *DB) Unregister(ctx context.Context, eventID, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM event_registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting registration %s/%s: %w", eventID, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("registration", eventID+"/"+userID)
	}
	return nil
}
