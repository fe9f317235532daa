package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.EventRepository = (*DB)(nil)

// eventSelect is the aggregation procedure behind every event read.
// Column order must match scanEvent.
const eventSelect = `
	SELECT
		e.id, e.host_id, e.title, e.description, e.event_date, e.location_name,
		e.category, e.capacity, e.image_url, e.created_at,
		(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id),
		COALESCE(p.full_name, ''),
		(SELECT AVG(rt.score) FROM event_ratings rt WHERE rt.host_id = e.host_id)
	FROM events e
	LEFT JOIN profiles p ON p.id = e.host_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e         model.Event
		eventDate int64
		createdAt int64
		imageURL  sql.NullString
		rating    sql.NullFloat64
	)
	err := row.Scan(
		&e.ID,
		&e.HostID,
		&e.Title,
		&e.Description,
		&eventDate,
		&e.LocationName,
		&e.Category,
		&e.Capacity,
		&imageURL,
		&createdAt,
		&e.RegistrationCount,
		&e.HostFullName,
		&rating,
	)
	if err != nil {
		return nil, err
	}
	e.EventDate = fromMillis(eventDate)
	e.CreatedAt = fromMillis(createdAt)
	e.ImageURL = nullString(imageURL)
	e.HostRating = nullFloat(rating)
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	// Start from an empty slice so "no events" encodes as [] rather than null.
	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CreateEvent inserts a new event. ID and CreatedAt are filled in; the
// aggregate fields start at their zero values (nobody registered yet).
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	event.ID = xid.New().String()
	event.CreatedAt = fromMillis(toMillis(db.now()))

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, host_id, title, description, event_date, location_name,
		                     category, capacity, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.HostID,
		event.Title,
		event.Description,
		toMillis(event.EventDate),
		event.LocationName,
		event.Category,
		event.Capacity,
		event.ImageURL,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event: %w", err)
	}
	return nil
}

// GetEvent returns one aggregated event, or apperror.ErrNotFound.
// Past events are still returned: a detail page can be opened from an old link.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := db.conn.QueryRowContext(ctx, eventSelect+` WHERE e.id = ?`, id)

	e, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}
	return e, nil
}

// ListEvents returns one window of upcoming events plus the size of the
// whole filtered set.
//
// The COUNT and the window run in one transaction so the total always
// describes the same snapshot the window was cut from.
func (db *DB) ListEvents(ctx context.Context, q repository.EventQuery) ([]model.Event, int, error) {
	where := []string{"e.event_date >= ?"}
	args := []any{toMillis(q.Now)}

	if q.Search != "" {
		// fold() on both sides keeps the folding identical for column and
		// needle. See fold.go.
		where = append(where, `(instr(fold(e.title), fold(?)) > 0
			OR instr(fold(e.description), fold(?)) > 0
			OR instr(fold(e.category), fold(?)) > 0)`)
		args = append(args, q.Search, q.Search, q.Search)
	}
	if q.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, q.Category)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: beginning list transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting events: %w", err)
	}

	// e.id breaks ties between events at the same instant so pages never
	// overlap or skip rows.
	rows, err := tx.QueryContext(ctx,
		eventSelect+clause+` ORDER BY e.event_date ASC, e.id ASC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing events: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: scanning events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: committing list transaction: %w", err)
	}
	return events, total, nil
}

// ListHosting returns the user's own upcoming events.
func (db *DB) ListHosting(ctx context.Context, userID string, now time.Time) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx,
		eventSelect+` WHERE e.host_id = ? AND e.event_date >= ?
		ORDER BY e.event_date ASC, e.id ASC`,
		userID, toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing hosted events for %s: %w", userID, err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning hosted events: %w", err)
	}
	return events, nil
}

// ListAttending returns the upcoming events the user is registered for,
// including ones they host.
func (db *DB) ListAttending(ctx context.Context, userID string, now time.Time) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx,
		eventSelect+`
		JOIN event_registrations mine ON mine.event_id = e.id AND mine.user_id = ?
		WHERE e.event_date >= ?
		ORDER BY e.event_date ASC, e.id ASC`,
		userID, toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing attended events for %s: %w", userID, err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning attended events: %w", err)
	}
	return events, nil
}
