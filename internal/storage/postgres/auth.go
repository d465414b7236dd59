package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
)

const (
	createUserSQL = `INSERT INTO users (id, email, password_hash, first_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	userColumns = `id::text, email, password_hash, first_name, created_at`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	createSessionSQL = `INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	getSessionSQL    = `SELECT token_hash, user_id::text, expires_at FROM sessions WHERE token_hash = $1`
	deleteSessionSQL = `DELETE FROM sessions WHERE token_hash = $1`
	purgeSessionsSQL = `DELETE FROM sessions WHERE expires_at < $1`

	hasRoleSQL   = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`
	grantRoleSQL = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
	_ auth.RoleRepository    = (*RoleRepository)(nil)
)

// UserRepository implements auth.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts u. A duplicate email yields auth.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL, u.ID, u.Email, u.PasswordHash, u.FirstName).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByEmail looks a user up by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.get(ctx, getUserByEmailSQL, email)
}

// GetByID looks a user up by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	if !validUUID(id) {
		return nil, auth.ErrUserNotFound
	}
	return r.get(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) get(ctx context.Context, query, arg string) (*auth.User, error) {
	var u auth.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", arg, err)
	}
	return &u, nil
}

// SessionRepository implements auth.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a session.
func (r *SessionRepository) Create(ctx context.Context, s auth.StoredSession) error {
	if _, err := r.pool.Exec(ctx, createSessionSQL, s.TokenHash, s.UserID, s.ExpiresAt); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// Get returns the session stored under tokenHash or auth.ErrNoSession.
func (r *SessionRepository) Get(ctx context.Context, tokenHash string) (*auth.StoredSession, error) {
	var s auth.StoredSession
	err := r.pool.QueryRow(ctx, getSessionSQL, tokenHash).Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNoSession
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Unknown hashes are ignored.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.pool.Exec(ctx, deleteSessionSQL, tokenHash); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the given time.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, purgeSessionsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RoleRepository implements auth.RoleRepository backed by PostgreSQL.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a RoleRepository that uses the given pool.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// HasRole reports whether userID holds role.
func (r *RoleRepository) HasRole(ctx context.Context, userID string, role auth.Role) (bool, error) {
	if !validUUID(userID) {
		return false, nil
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, hasRoleSQL, userID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking role %q: %w", role, err)
	}
	return ok, nil
}

// Grant gives role to userID. Granting twice is a no-op.
func (r *RoleRepository) Grant(ctx context.Context, userID string, role auth.Role) error {
	if _, err := r.pool.Exec(ctx, grantRoleSQL, userID, string(role)); err != nil {
		return fmt.Errorf("granting role %q: %w", role, err)
	}
	return nil
}
