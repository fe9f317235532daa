package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
)

// errBadCredentials is deliberately the same for unknown email and wrong
// password, so the response does not reveal which accounts exist.
var errBadCredentials = apperror.Unauthenticated("invalid email or password")

// SignUp creates the account and its profile, then signs the user in.
func (b *Backend) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperror.ValidationFailed("full_name", "full name is required")
	}
	if len(fullName) > MaxFullNameLength {
		return nil, apperror.ValidationFailed("full_name",
			fmt.Sprintf("full name must be %d characters or less", MaxFullNameLength))
	}
	if err := b.passwords.CheckStrength(password); err != nil {
		return nil, apperror.ValidationFailed("password", strings.TrimPrefix(err.Error(), "auth: "))
	}

	hash, err := b.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("backend: hashing password: %w", err)
	}

	account := &model.Account{Email: email, PasswordHash: hash}
	profile := &model.Profile{FullName: fullName, Interests: []string{}}
	if err := b.accounts.CreateAccount(ctx, account, profile); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.New(apperror.ErrConflict, "an account with this email already exists")
		}
		return nil, fmt.Errorf("backend: creating account: %w", err)
	}

	b.logger.Info("account created", slog.String("userID", account.ID))

	return b.newSession(account)
}

// Authenticate checks email and password and issues a session.
func (b *Backend) Authenticate(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	account, err := b.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("backend: loading account: %w", err)
	}

	if err := b.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			b.logger.Warn("failed sign-in", slog.String("userID", account.ID))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("backend: verifying password: %w", err)
	}

	return b.newSession(account)
}

func (b *Backend) newSession(account *model.Account) (*model.Session, error) {
	token, expires, err := b.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("backend: issuing token: %w", err)
	}
	return &model.Session{
		UserID:      account.ID,
		Email:       account.Email,
		AccessToken: token,
		ExpiresAt:   expires,
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}
