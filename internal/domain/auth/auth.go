// Package auth provides email/password accounts, bearer-token sessions and
// role lookups.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrEmailTaken is returned by SignUp when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession is returned for a missing, unknown or expired token.
	ErrNoSession = errors.New("no active session")
	// ErrUserNotFound is returned by UserRepository lookups.
	ErrUserNotFound = errors.New("user not found")
)

// Role is a named permission set granted to a user.
type Role string

// RoleAdmin grants access to the admin console.
const RoleAdmin Role = "admin"

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	CreatedAt    time.Time
}

// Profile carries optional signup metadata.
type Profile struct {
	FirstName string
}

// Session is an authenticated session. Token is the bearer secret and is
// only known to the caller; storage keeps its hash.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// StoredSession is the persisted form of a session.
type StoredSession struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// UserRepository persists accounts. Create returns ErrEmailTaken when the
// email already exists; lookups return ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// SessionRepository persists sessions by token hash. Get returns
// ErrNoSession when the hash is unknown.
type SessionRepository interface {
	Create(ctx context.Context, s StoredSession) error
	Get(ctx context.Context, tokenHash string) (*StoredSession, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RoleRepository answers role membership questions.
type RoleRepository interface {
	HasRole(ctx context.Context, userID string, role Role) (bool, error)
	Grant(ctx context.Context, userID string, role Role) error
}
