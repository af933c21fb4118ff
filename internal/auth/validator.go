package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCredentials covers both an unknown username and a wrong
// password. Callers must not distinguish the two to the end user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is a syntactically valid Argon2id hash of no real password.
// When a username is unknown we still verify the supplied password against
// it, so the response latency of "unknown username" matches "wrong
// password" and usernames cannot be enumerated through timing.
const dummyHash = "$argon2id$v=19$m=15000,t=2,p=1$" +
	"gZiV/M1gPc22ElAH/Jh1Hw$" +
	"CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"

// Validator checks submitted credentials against the users table. It has
// read-only access to stored credentials; provisioning happens out of band.
type Validator struct {
	db  *sql.DB
	log *zap.Logger
}

// NewValidator creates a credential validator
func NewValidator(db *sql.DB, log *zap.Logger) *Validator {
	return &Validator{db: db, log: log}
}

// ValidateCredentials returns the user id when username and password match
// a stored credential. Unknown usernames and wrong passwords both return
// ErrInvalidCredentials. Database failures and malformed stored hashes are
// returned as distinct errors; the HTTP boundary collapses them into the
// same generic authentication failure shown to the user.
func (v *Validator) ValidateCredentials(ctx context.Context, username, password string) (uuid.UUID, error) {
	storedHash := dummyHash
	var userID uuid.UUID
	known := true

	err := v.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash FROM users WHERE username = $1`,
		username).Scan(&userID, &storedHash)
	if err == sql.ErrNoRows {
		known = false
	} else if err != nil {
		return uuid.Nil, fmt.Errorf("look up stored credentials: %w", err)
	}

	// Always run the verification, even for an unknown username: skipping it
	// would make the failure measurably faster and leak which usernames exist.
	verifyErr := VerifyPassword(storedHash, password)

	if !known {
		return uuid.Nil, ErrInvalidCredentials
	}
	if verifyErr != nil {
		if errors.Is(verifyErr, ErrPasswordMismatch) {
			return uuid.Nil, ErrInvalidCredentials
		}
		v.log.Error("stored password hash is malformed",
			zap.String("username", username), zap.Error(verifyErr))
		return uuid.Nil, fmt.Errorf("verify password: %w", verifyErr)
	}
	return userID, nil
}

// UsernameForID resolves a user id back to its username, for display on
// authenticated pages.
func (v *Validator) UsernameForID(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := v.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE user_id = $1`,
		userID).Scan(&username)
	if err != nil {
		return "", fmt.Errorf("look up username for %s: %w", userID, err)
	}
	return username, nil
}
