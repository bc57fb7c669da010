// Package session owns the signed-in user of a dashboard client. A single
// goroutine serializes startup, remote auth events and logout; it is also the
// only writer of the local session cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"foodconnect/models"
)

type AuthEventType string

const (
	SignedIn  AuthEventType = "SIGNED_IN"
	SignedOut AuthEventType = "SIGNED_OUT"
)

// RemoteSession is the auth backend's view of an active sign-in
type RemoteSession struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

type AuthEvent struct {
	Type    AuthEventType
	Session *RemoteSession // nil for SignedOut
}

type SignUpMetadata struct {
	Name string
	Role models.UserRole
}

// AuthBackend is the remote identity service
type AuthBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) error
	SignOut(ctx context.Context) error
	// GetSession returns nil, nil when nobody is signed in
	GetSession(ctx context.Context) (*RemoteSession, error)
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}

// SessionRestorer is implemented by backends that can reuse a cached token
type SessionRestorer interface {
	RestoreSession(token string, expiresAt time.Time)
}

type ProfileSource interface {
	FetchProfile(ctx context.Context, userID string) (*models.User, error)
}

// Cache persists the last confirmed session between runs
type Cache interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

// AuthError is returned by Login and Register
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseCacheHit
	PhaseCacheMissPendingRemote
	PhaseResolved
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseCacheHit:
		return "cache-hit"
	case PhaseCacheMissPendingRemote:
		return "cache-miss-pending-remote"
	case PhaseResolved:
		return "resolved"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is the state handed to watchers
type Snapshot struct {
	User    *models.User
	Loading bool
	Phase   Phase
}

var ErrAlreadyStarted = errors.New("session provider already started")

type command struct {
	bootstrap bool
	event     *AuthEvent
	settle    bool
	done      chan struct{}
}

type Provider struct {
	backend  AuthBackend
	profiles ProfileSource
	cache    Cache
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    Snapshot
	changed  chan struct{} // closed and replaced on every state change
	watchers map[int]func(Snapshot)
	nextID   int
	// sign-ins whose settle command has not run yet; Loading stays set while non-zero
	pendingAuth int

	qmu   sync.Mutex
	queue []command
	wake  chan struct{}

	started     bool
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

func NewProvider(backend AuthBackend, profiles ProfileSource, cache Cache, log *slog.Logger) *Provider {
	return &Provider{
		backend:  backend,
		profiles: profiles,
		cache:    cache,
		log:      log,
		now:      time.Now,
		state:    Snapshot{Loading: true, Phase: PhaseUnknown},
		changed:  make(chan struct{}),
		watchers: map[int]func(Snapshot){},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start subscribes to remote auth changes and runs the startup sequence in the background
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.unsubscribe = p.backend.OnAuthStateChange(func(ev AuthEvent) {
		p.enqueue(command{event: &ev})
	})
	p.enqueue(command{bootstrap: true})
	go p.run(runCtx)
	return nil
}

// Close unsubscribes from the backend and stops the owner goroutine
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if !started {
			return
		}
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		p.cancel()
		<-p.done
	})
}

func (p *Provider) User() *models.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.User
}

func (p *Provider) IsLoading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Loading
}

func (p *Provider) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Phase
}

func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// WaitIdle blocks until no sign-in work is in flight
func (p *Provider) WaitIdle(ctx context.Context) error {
	for {
		p.mu.Lock()
		loading, changed := p.state.Loading, p.changed
		p.mu.Unlock()
		if !loading {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watch calls fn after every state change until the returned func is called
func (p *Provider) Watch(fn func(Snapshot)) (unwatch func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

// Login signs in remotely. The user itself arrives with the backend's SIGNED_IN event.
func (p *Provider) Login(ctx context.Context, email, password string) error {
	p.beginAuth()
	if err := p.backend.SignInWithPassword(ctx, email, password); err != nil {
		p.log.Error("login failed", "email", email, "error", err)
		p.endAuth()
		return &AuthError{Op: "login", Err: err}
	}
	p.enqueue(command{settle: true})
	return nil
}

func (p *Provider) beginAuth() {
	p.update(func(s *Snapshot) {
		p.pendingAuth++
		s.Loading = true
	})
}

// endAuth runs once per beginAuth, either on remote failure or from the settle command
func (p *Provider) endAuth() {
	p.update(func(s *Snapshot) {
		p.pendingAuth--
		s.Loading = p.pendingAuth > 0
	})
}

// Register creates the account; like Login, the user is populated asynchronously
func (p *Provider) Register(ctx context.Context, name, email, password string, role models.UserRole) error {
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return &AuthError{Op: "register", Err: fmt.Errorf("unknown role %q", role)}
	}

	p.beginAuth()
	if err := p.backend.SignUp(ctx, email, password, SignUpMetadata{Name: name, Role: role}); err != nil {
		p.log.Error("registration failed", "email", email, "error", err)
		p.endAuth()
		return &AuthError{Op: "register", Err: err}
	}
	p.enqueue(command{settle: true})
	return nil
}

// Logout never fails: a remote error is logged and local state is cleared regardless
func (p *Provider) Logout(ctx context.Context) {
	if err := p.backend.SignOut(ctx); err != nil {
		p.log.Warn("remote sign-out failed", "error", err)
	}

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		p.signedOut(ctx)
		return
	}

	done := make(chan struct{})
	p.enqueue(command{event: &AuthEvent{Type: SignedOut}, done: done})
	select {
	case <-done:
	case <-ctx.Done():
	case <-p.done:
	}
}

func (p *Provider) enqueue(c command) {
	p.qmu.Lock()
	p.queue = append(p.queue, c)
	p.qmu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Provider) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		}

		p.qmu.Lock()
		pending := p.queue
		p.queue = nil
		p.qmu.Unlock()

		for _, c := range pending {
			switch {
			case c.bootstrap:
				p.bootstrap(ctx)
			case c.event != nil:
				p.handleEvent(ctx, *c.event)
			case c.settle:
				p.endAuth()
			}
			if c.done != nil {
				close(c.done)
			}
		}
	}
}

func (p *Provider) bootstrap(ctx context.Context) {
	cached, err := p.cache.Load(ctx)
	if err != nil {
		p.log.Warn("session cache unreadable", "error", err)
		cached = nil
	}

	if cached.Usable(p.now()) {
		p.log.Debug("using cached session", "user_id", cached.User.ID)
		p.update(func(s *Snapshot) {
			s.User = cached.User
			s.Loading = p.pendingAuth > 0
			s.Phase = PhaseCacheHit
		})
		if r, ok := p.backend.(SessionRestorer); ok {
			r.RestoreSession(cached.AccessToken, cached.ExpiresAt)
		}
	} else {
		if cached != nil {
			p.clearCache(ctx)
		}
		p.update(func(s *Snapshot) {
			s.Loading = true
			s.Phase = PhaseCacheMissPendingRemote
		})
	}

	remote, err := p.backend.GetSession(ctx)
	if err != nil {
		p.log.Error("fetching remote session failed", "error", err)
		p.signedOut(ctx)
		return
	}
	if remote == nil {
		p.log.Debug("no active remote session")
		p.signedOut(ctx)
		return
	}
	if err := p.resolve(ctx, remote); err != nil {
		if signOutErr := p.backend.SignOut(ctx); signOutErr != nil {
			p.log.Warn("remote sign-out failed", "error", signOutErr)
		}
	}
}

func (p *Provider) handleEvent(ctx context.Context, ev AuthEvent) {
	switch ev.Type {
	case SignedIn:
		if ev.Session == nil {
			return
		}
		p.update(func(s *Snapshot) { s.Loading = true })
		_ = p.resolve(ctx, ev.Session)
	case SignedOut:
		p.signedOut(ctx)
	}
}

// resolve fetches the profile behind remote and makes it the current user.
// On failure everything is cleared rather than keep a possibly stale role.
func (p *Provider) resolve(ctx context.Context, remote *RemoteSession) error {
	profile, err := p.profiles.FetchProfile(ctx, remote.UserID)
	if err != nil {
		p.log.Error("fetching profile failed", "user_id", remote.UserID, "error", err)
		p.signedOut(ctx)
		return err
	}

	err = p.cache.Save(ctx, &models.Session{
		User:        profile,
		AccessToken: remote.AccessToken,
		ExpiresAt:   remote.ExpiresAt,
	})
	if err != nil {
		p.log.Warn("caching session failed", "error", err)
	}
	p.update(func(s *Snapshot) {
		s.User = profile
		s.Loading = p.pendingAuth > 0
		s.Phase = PhaseResolved
	})
	p.log.Info("signed in", "user_id", profile.ID, "role", profile.Role)
	return nil
}

func (p *Provider) signedOut(ctx context.Context) {
	p.clearCache(ctx)
	p.update(func(s *Snapshot) {
		s.User = nil
		s.Loading = p.pendingAuth > 0
		s.Phase = PhaseUnauthenticated
	})
}

func (p *Provider) clearCache(ctx context.Context) {
	if err := p.cache.Clear(ctx); err != nil {
		p.log.Warn("clearing session cache failed", "error", err)
	}
}

// update applies fn under p.mu, then notifies watchers outside it
func (p *Provider) update(fn func(*Snapshot)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.state
	close(p.changed)
	p.changed = make(chan struct{})
	watchers := make([]func(Snapshot), 0, len(p.watchers))
	for _, w := range p.watchers {
		watchers = append(watchers, w)
	}
	p.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
}
