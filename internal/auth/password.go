// Password hashing for email/password accounts.
//
// WHY BCRYPT?
// A password hash should be slow to compute. bcrypt is slow on purpose and
// tunable through its cost: each step up doubles the work, so an attacker
// with a leaked accounts table pays that price for every guess. It also
// salts for us. GenerateFromPassword draws a random salt and writes it into
// its output, so the accounts table needs no salt column, and two users with
// the same password still get different hashes:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^
//	    cost: 2^12 rounds
//
// WHY A STRUCT AND NOT FREE FUNCTIONS?
// The cost is a field, so tests can hash at bcrypt.MinCost (4) and stay fast
// while production uses defaultCost.
package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Password rules enforced at sign-up.
//
// bcrypt only looks at the first 72 bytes of its input; anything longer would
// be silently truncated, so it is refused instead.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// defaultCost is the bcrypt work factor, ~250ms per hash on current hardware.
const defaultCost = 12

var (
	ErrPasswordTooShort = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService hashes and verifies passwords with bcrypt.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest lets other packages' tests use a cheap cost
// (bcrypt.MinCost is 4). Never use it in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckStrength applies the sign-up length rules without hashing.
func (p *PasswordService) CheckStrength(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(plaintext) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash returns a self-describing bcrypt hash ($2a$<cost>$<salt><hash>).
// The salt is random, so hashing the same password twice gives two
// different strings.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch when
// it does not. The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
