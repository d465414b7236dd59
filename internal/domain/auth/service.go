package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/validation"
)

// Event is an auth state change delivered to listeners.
type Event string

const (
	SignedIn  Event = "SIGNED_IN"
	SignedOut Event = "SIGNED_OUT"
)

// Listener is called synchronously after a session is created or destroyed.
type Listener func(ev Event, s *Session)

// Config controls session lifetime and credential hashing.
type Config struct {
	SessionTTL time.Duration
	// Pepper keys the HMAC used to hash stored session tokens.
	Pepper []byte
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
}

type signUpForm struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
}

// Service implements sign up, sign in and session lookup.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	roles    RoleRepository
	cfg      Config
	now      func() time.Time

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewService creates an auth Service.
func NewService(users UserRepository, sessions SessionRepository, roles RoleRepository, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		roles:     roles,
		cfg:       cfg,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// SignUp registers a new account. It does not sign the user in.
func (s *Service) SignUp(ctx context.Context, email, password string, profile Profile) (*User, error) {
	form := signUpForm{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  password,
		FirstName: strings.TrimSpace(profile.FirstName),
	}
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        form.Email,
		PasswordHash: string(hash),
		FirstName:    form.FirstName,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, errors.Wrap(err, "generate token")
	}
	expiresAt := s.now().Add(s.cfg.SessionTTL).UTC()
	if err := s.sessions.Create(ctx, StoredSession{
		TokenHash: hashToken(s.cfg.Pepper, token),
		UserID:    u.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, errors.Wrap(err, "create session")
	}

	sess := &Session{Token: token, User: *u, ExpiresAt: expiresAt}
	s.notify(SignedIn, sess)
	return sess, nil
}

// SignOut destroys the session identified by token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.GetSession(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, hashToken(s.cfg.Pepper, token)); err != nil {
		return errors.Wrap(err, "delete session")
	}
	s.notify(SignedOut, sess)
	return nil
}

// GetSession resolves token to a live session.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	hash := hashToken(s.cfg.Pepper, token)

	stored, err := s.sessions.Get(ctx, hash)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil, ErrNoSession
	case err != nil:
		return nil, errors.Wrap(err, "get session")
	}
	if !hashesEqual(hash, stored.TokenHash) {
		return nil, ErrNoSession
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, ErrNoSession
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, ErrNoSession
	case err != nil:
		return nil, errors.Wrap(err, "get user")
	}
	return &Session{Token: token, User: *u, ExpiresAt: stored.ExpiresAt}, nil
}

// IsAdmin reports whether userID holds the admin role.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	ok, err := s.roles.HasRole(ctx, userID, RoleAdmin)
	if err != nil {
		return false, errors.Wrap(err, "check role")
	}
	return ok, nil
}

// PurgeExpired removes sessions that expired before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	return n, nil
}

// OnAuthStateChange registers fn for SIGNED_IN and SIGNED_OUT events. The
// returned func removes the listener; calling it twice is a no-op.
func (s *Service) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) notify(ev Event, sess *Session) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev, sess)
	}
}
