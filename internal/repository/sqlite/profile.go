package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// GetProfile returns the profile with its rating aggregates.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var (
		p         model.Profile
		interests string
		createdAt int64
		updatedAt int64
		rating    sql.NullFloat64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT p.id, p.full_name, p.bio, p.interests, p.created_at, p.updated_at,
		        (SELECT AVG(score) FROM event_ratings WHERE host_id = p.id),
		        (SELECT COUNT(*) FROM event_ratings WHERE host_id = p.id)
		 FROM profiles p WHERE p.id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.FullName,
		&p.Bio,
		&interests,
		&createdAt,
		&updatedAt,
		&rating,
		&p.TotalRatings,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(interests), &p.Interests); err != nil {
		return nil, fmt.Errorf("sqlite: decoding interests for %s: %w", id, err)
	}
	p.Interests = model.NormalizeInterests(p.Interests)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.HostRating = nullFloat(rating)
	return &p, nil
}

// UpdateProfile overwrites full_name, bio and interests. Nothing is merged
// with the previous row: whatever the caller passes is the new state.
func (db *DB) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	interests, err := encodeInterests(profile.Interests)
	if err != nil {
		return err
	}
	profile.UpdatedAt = fromMillis(toMillis(db.now()))

	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET full_name = ?, bio = ?, interests = ?, updated_at = ?
		 WHERE id = ?`,
		profile.FullName,
		profile.Bio,
		interests,
		toMillis(profile.UpdatedAt),
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", profile.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", profile.ID)
	}
	return nil
}

// HostRating is the average score across every rating the host received,
// or nil when there are none.
func (db *DB) HostRating(ctx context.Context, hostID string) (*float64, error) {
	var rating sql.NullFloat64
	err := db.conn.QueryRowContext(ctx,
		`SELECT AVG(score) FROM event_ratings WHERE host_id = ?`, hostID,
	).Scan(&rating)
	if err != nil {
		return nil, fmt.Errorf("sqlite: host rating for %s: %w", hostID, err)
	}
	return nullFloat(rating), nil
}

func encodeInterests(tags []string) (string, error) {
	b, err := json.Marshal(model.NormalizeInterests(tags))
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding interests: %w", err)
	}
	return string(b), nil
}
