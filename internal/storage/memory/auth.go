package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
)

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
	_ auth.RoleRepository    = (*Roles)(nil)
)

// Users is an in-memory auth.UserRepository. Emails are matched
// case-insensitively.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]auth.User
	byEmail map[string]string
}

// NewUsers returns an empty Users.
func NewUsers() *Users {
	return &Users{byID: make(map[string]auth.User), byEmail: make(map[string]string)}
}

func (r *Users) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return auth.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	r.byID[u.ID] = *u
	r.byEmail[email] = u.ID
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *Users) GetByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

// Sessions is an in-memory auth.SessionRepository.
type Sessions struct {
	mu     sync.Mutex
	byHash map[string]auth.StoredSession
}

// NewSessions returns an empty Sessions.
func NewSessions() *Sessions {
	return &Sessions{byHash: make(map[string]auth.StoredSession)}
}

func (r *Sessions) Create(_ context.Context, s auth.StoredSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[s.TokenHash] = s
	return nil
}

func (r *Sessions) Get(_ context.Context, tokenHash string) (*auth.StoredSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, auth.ErrNoSession
	}
	return &s, nil
}

func (r *Sessions) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, tokenHash)
	return nil
}

func (r *Sessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for h, s := range r.byHash {
		if s.ExpiresAt.Before(before) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

// Roles is an in-memory auth.RoleRepository.
type Roles struct {
	mu     sync.RWMutex
	grants map[string]map[auth.Role]struct{}
}

// NewRoles returns an empty Roles.
func NewRoles() *Roles {
	return &Roles{grants: make(map[string]map[auth.Role]struct{})}
}

func (r *Roles) HasRole(_ context.Context, userID string, role auth.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grants[userID][role]
	return ok, nil
}

func (r *Roles) Grant(_ context.Context, userID string, role auth.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grants[userID] == nil {
		r.grants[userID] = make(map[auth.Role]struct{})
	}
	r.grants[userID][role] = struct{}{}
	return nil
}

// statusRow renders the slim order row carried by change notifications.
func statusRow(id string, status order.Status) jx.Raw {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id)
	e.FieldStart("status")
	e.Str(string(status))
	e.ObjEnd()
	return jx.Raw(e.Bytes())
}
