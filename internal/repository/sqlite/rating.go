package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.RatingRepository = (*DB)(nil)

// CreateRating stores a score for the host of rating.EventID.
// HostID is taken from the event row, so callers cannot misattribute a score.
func (db *DB) CreateRating(ctx context.Context, rating *model.Rating) error {
	if rating.Score < 1 || rating.Score > 5 {
		return apperror.ValidationFailed("score", "score must be between 1 and 5")
	}

	rating.ID = xid.New().String()
	rating.CreatedAt = fromMillis(toMillis(db.now()))

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO event_ratings (id, event_id, host_id, rater_id, score, created_at)
		 SELECT ?, e.id, e.host_id, ?, ?, ? FROM events e WHERE e.id = ?`,
		rating.ID, rating.RaterID, rating.Score, toMillis(rating.CreatedAt), rating.EventID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConstraintViolation("event already rated")
		}
		return fmt.Errorf("sqlite: inserting rating: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("event", rating.EventID)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT host_id FROM event_ratings WHERE id = ?`, rating.ID,
	).Scan(&rating.HostID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back rating %s: %w", rating.ID, err)
	}
	return nil
}
