package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

const defaultLockTTL = 30 * time.Second

// Transition actions reported to listeners.
const (
	ActionLogin       = "login"
	ActionRegister    = "register"
	ActionLogout      = "logout"
	ActionInvalidated = "invalidated"
)

// Transition describes one change of SessionState.
type Transition struct {
	SessionKey string
	Action     string
	From       domain.SessionState
	To         domain.SessionState
	User       *domain.User
	At         time.Time
}

// TransitionListener observes settled transitions. Listeners run on the
// caller's goroutine and must not block.
type TransitionListener func(ctx context.Context, t Transition)

// AuthContextConfig holds the routes the state machine navigates to.
type AuthContextConfig struct {
	LandingRoute string
	PublicRoute  string
	LockTTL      time.Duration
}

// AuthContext owns the Session of one browser context. It is the only
// writer of that session: handlers read it or ask for changes through it.
type AuthContext struct {
	sessionKey string
	auth       ports.AuthService
	lock       ports.TransitionLock
	cfg        AuthContextConfig
	listeners  []TransitionListener
	log        zerolog.Logger

	initOnce sync.Once

	mu    sync.RWMutex
	state domain.SessionState
	user  *domain.User
	nav   string
}

// NewAuthContext creates a context in the Initializing state. sessionKey is
// the derived key of the browser session, never the raw cookie value.
func NewAuthContext(sessionKey string, auth ports.AuthService, lock ports.TransitionLock, cfg AuthContextConfig, log zerolog.Logger, listeners ...TransitionListener) *AuthContext {
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = "/dashboard"
	}
	if cfg.PublicRoute == "" {
		cfg.PublicRoute = "/"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &AuthContext{
		sessionKey: sessionKey,
		auth:       auth,
		lock:       lock,
		cfg:        cfg,
		listeners:  listeners,
		log:        log.With().Str("component", "auth_context").Str("session", sessionKey).Logger(),
		state:      domain.StateInitializing,
	}
}

// Initialize resolves the stored session exactly once. Later calls return
// immediately.
func (a *AuthContext) Initialize(ctx context.Context) {
	a.initOnce.Do(func() {
		user := a.auth.GetCurrentUser(ctx)

		a.mu.Lock()
		defer a.mu.Unlock()
		a.user = user
		if user != nil {
			a.state = domain.StateAuthenticated
		} else {
			a.state = domain.StateAnonymous
		}
	})
}

// State returns the current lifecycle state.
func (a *AuthContext) State() domain.SessionState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// User returns a copy of the session user, or nil.
func (a *AuthContext) User() *domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user.Clone()
}

// IsAuthenticated reports whether a user is present.
func (a *AuthContext) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user != nil
}

// SessionKey returns the derived key identifying this browser context.
func (a *AuthContext) SessionKey() string { return a.sessionKey }

// Navigation returns the pending one-time navigation and clears it.
func (a *AuthContext) Navigation() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	to := a.nav
	a.nav = ""
	return to, to != ""
}

func (a *AuthContext) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return a.signIn(ctx, ActionLogin, func(ctx context.Context) (*domain.User, error) {
		return a.auth.Login(ctx, email, password)
	})
}

func (a *AuthContext) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return a.signIn(ctx, ActionRegister, func(ctx context.Context) (*domain.User, error) {
		return a.auth.Register(ctx, in)
	})
}

func (a *AuthContext) signIn(ctx context.Context, action string, fn func(context.Context) (*domain.User, error)) (*domain.User, error) {
	a.Initialize(ctx)

	release, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := fn(ctx)
	if domain.RejectedLocally(err) {
		return nil, err
	}

	a.mu.Lock()
	from := a.state
	if err != nil {
		a.user = nil
		a.state = domain.StateAnonymous
	} else {
		a.user = user.Clone()
		a.state = domain.StateAuthenticated
		a.nav = a.cfg.LandingRoute
	}
	to := a.state
	a.mu.Unlock()

	if err != nil {
		if from != to {
			a.notify(ctx, ActionInvalidated, from, to, nil)
		}
		return nil, err
	}
	a.notify(ctx, action, from, to, user)
	return user, nil
}

// Logout drops the session locally before the backend is told, then records
// the navigation to the public entry route.
func (a *AuthContext) Logout(ctx context.Context) error {
	a.Initialize(ctx)

	release, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	a.mu.Lock()
	from, user := a.state, a.user
	a.user = nil
	a.state = domain.StateAnonymous
	a.nav = a.cfg.PublicRoute
	a.mu.Unlock()

	a.auth.Logout(ctx)

	if from != domain.StateAnonymous {
		a.notify(ctx, ActionLogout, from, domain.StateAnonymous, user)
	}
	return nil
}

// UpdateProfile forwards to the auth service and adopts the server's copy of
// the user.
func (a *AuthContext) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) (*domain.User, error) {
	a.Initialize(ctx)

	user, err := a.auth.UpdateProfile(ctx, in)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.state == domain.StateAuthenticated {
		a.user = user.Clone()
	}
	a.mu.Unlock()
	return user, nil
}

// Invalidate moves the context to Anonymous after the backend rejected the
// credential. The store has already been cleared by the API client.
func (a *AuthContext) Invalidate(ctx context.Context) {
	a.mu.Lock()
	from, user := a.state, a.user
	a.user = nil
	if from != domain.StateInitializing {
		a.state = domain.StateAnonymous
	}
	a.mu.Unlock()

	if from == domain.StateAuthenticated {
		a.log.Info().Msg("session invalidated by backend")
		a.notify(ctx, ActionInvalidated, from, domain.StateAnonymous, user)
	}
}

func (a *AuthContext) acquire(ctx context.Context) (func(), error) {
	release, ok, err := a.lock.TryAcquire(ctx, "transition:"+a.sessionKey, a.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire transition lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrTransitionInFlight
	}
	return release, nil
}

func (a *AuthContext) notify(ctx context.Context, action string, from, to domain.SessionState, user *domain.User) {
	t := Transition{
		SessionKey: a.sessionKey,
		Action:     action,
		From:       from,
		To:         to,
		User:       user.Clone(),
		At:         time.Now().UTC(),
	}
	for _, l := range a.listeners {
		l(ctx, t)
	}
}
