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

var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount inserts the profile first and then the account that points at
// it, both in one transaction. A duplicate email rolls back the profile too.
//
// One generated ID is shared by both rows: the profile IS the user.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account, profile *model.Profile) error {
	interests, err := encodeInterests(profile.Interests)
	if err != nil {
		return err
	}

	now := fromMillis(toMillis(db.now()))
	id := xid.New().String()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning account creation: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, bio, interests, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, profile.FullName, profile.Bio, interests, toMillis(now), toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		id, account.Email, account.PasswordHash, toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing account creation: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	profile.ID = id
	profile.Interests = model.NormalizeInterests(profile.Interests)
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

// GetAccountByEmail looks an account up for sign-in. Email matching ignores
// ASCII case.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var (
		a         model.Account
		createdAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?`,
		email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", email, err)
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}
