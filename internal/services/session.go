package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"netbons/internal/config"
	"netbons/internal/kvstore"
	"netbons/internal/models"
	"netbons/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	minPasswordLength  = 4
	defaultSessionTTL  = 30 * 24 * time.Hour
	defaultUserName    = "Usuário"
	defaultProfileName = "Você"
)

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticated
	StateProfileActive
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateProfileActive:
		return "profileActive"
	default:
		return "loggedOut"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionSnapshot is a copy of the machine's current state.
type SessionSnapshot struct {
	State     State               `json:"state"`
	User      *models.AccountInfo `json:"user,omitempty"`
	Profile   *models.Profile     `json:"profile,omitempty"`
	ExpiresAt time.Time           `json:"expiresAt,omitzero"`
}

// ReloadHook runs after logout to drop process state that is not backed by
// a persisted key.
type ReloadHook func(ctx context.Context)

// SessionService is the LoggedOut -> Authenticated -> ProfileActive state
// machine. It owns the session, active profile and logged-in user slots.
type SessionService struct {
	mu      sync.Mutex
	store   *kvstore.Store
	users   repository.UserRepository
	keys    config.StorageKeys
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time
	hooks   []ReloadHook
	state   State
	user    *models.AccountInfo
	profile *models.Profile
	expires time.Time
}

func NewSessionService(store *kvstore.Store, users repository.UserRepository, keys config.StorageKeys, ttl time.Duration, logger *logrus.Logger) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionService{
		store:  store,
		users:  users,
		keys:   keys,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// OnLogout registers a hook run at the end of every Logout.
func (s *SessionService) OnLogout(hook ReloadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Restore rebuilds the highest state reachable from persisted data. An
// absent or expired session always lands in StateLoggedOut.
func (s *SessionService) Restore(ctx context.Context) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()

	var session models.Session
	if !s.store.Get(ctx, s.keys.Session, &session) || !session.Valid(s.now()) {
		s.logger.Debug("No live session, starting logged out")
		return s.snapshot()
	}

	// a missing user slot still resumes the session; profiles then fall
	// back to the default name. An unreadable one does not.
	var user models.AccountInfo
	switch {
	case s.store.Get(ctx, s.keys.LoggedUser, &user):
		s.user = &user
	case s.store.Has(ctx, s.keys.LoggedUser):
		s.logger.Warn("Unreadable logged-in user, starting logged out")
		return s.snapshot()
	default:
		s.logger.Warn("Session without a logged-in user")
	}
	s.expires = session.Expiry()
	s.state = StateAuthenticated

	var profile models.Profile
	if s.store.Get(ctx, s.keys.ActiveProfile, &profile) && profile.ID != "" {
		s.profile = &profile
		s.state = StateProfileActive
	}

	s.logger.WithFields(logrus.Fields{
		"email":      user.Email,
		"state":      s.state.String(),
		"expires_at": s.expires,
	}).Info("Session restored")
	return s.snapshot()
}

// Login checks email (case-insensitive) and then the exact password.
func (s *SessionService) Login(ctx context.Context, email, password string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users.FindByEmail(ctx, email)
	if !ok {
		s.logger.WithField("email", email).Info("Login rejected: unknown email")
		return s.snapshot(), ErrEmailNotFound
	}
	if record.Password != password {
		s.logger.WithField("email", record.Email).Info("Login rejected: wrong password")
		return s.snapshot(), ErrWrongPassword
	}

	s.authenticate(ctx, models.AccountInfo{Name: record.Name, Email: record.Email})
	return s.snapshot(), nil
}

// Signup registers a new account and logs it in. Uniqueness is checked
// against the list as it is right now.
func (s *SessionService) Signup(ctx context.Context, name, email, password string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := repository.NormalizeEmail(email)
	if normalized == "" {
		return s.snapshot(), ErrMissingEmail
	}
	if _, exists := s.users.FindByEmail(ctx, normalized); exists {
		return s.snapshot(), ErrDuplicateEmail
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return s.snapshot(), ErrWeakPassword
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultUserName
	}

	record := models.UserRecord{Email: normalized, Password: password, Name: name}
	if err := s.users.Append(ctx, record); err != nil {
		s.logger.WithError(err).WithField("email", normalized).Warn("Failed to persist registered users")
	}
	s.logger.WithField("email", normalized).Info("Account created")

	s.authenticate(ctx, models.AccountInfo{Name: name, Email: normalized})
	return s.snapshot(), nil
}

// Profiles lists the profiles of the logged-in account. They are derived
// from the account name, never stored.
func (s *SessionService) Profiles() ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoggedOut {
		return nil, ErrNotAuthenticated
	}
	return profilesFor(s.user), nil
}

// SelectProfile makes id the single active profile.
func (s *SessionService) SelectProfile(ctx context.Context, id string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoggedOut {
		return models.Profile{}, ErrNotAuthenticated
	}

	for _, p := range profilesFor(s.user) {
		if p.ID != id {
			continue
		}
		if err := s.store.Set(ctx, s.keys.ActiveProfile, p); err != nil {
			s.logger.WithError(err).Warn("Failed to persist active profile")
		}
		profile := p
		s.profile = &profile
		s.state = StateProfileActive
		s.logger.WithFields(logrus.Fields{
			"profile_id": p.ID,
			"profile":    p.Name,
		}).Info("Profile selected")
		return p, nil
	}
	return models.Profile{}, ErrUnknownProfile
}

// ActiveProfile returns the selected profile or ErrProfileRequired.
func (s *SessionService) ActiveProfile() (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLoggedOut:
		return models.Profile{}, ErrNotAuthenticated
	case StateAuthenticated:
		return models.Profile{}, ErrProfileRequired
	}
	return *s.profile, nil
}

// Logout clears the session, profile and user slots and then runs the
// reload hooks. Registered users and the catalog are left alone.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.store.Remove(ctx, s.keys.Session, s.keys.ActiveProfile, s.keys.LoggedUser)
	s.reset()
	hooks := append([]ReloadHook(nil), s.hooks...)
	s.mu.Unlock()

	s.logger.Info("Logged out")
	for _, hook := range hooks {
		hook(ctx)
	}
}

func (s *SessionService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *SessionService) authenticate(ctx context.Context, user models.AccountInfo) {
	session := models.NewSession(s.now(), s.ttl)
	if err := s.store.Set(ctx, s.keys.Session, session); err != nil {
		s.logger.WithError(err).Warn("Failed to persist session")
	}
	if err := s.store.Set(ctx, s.keys.LoggedUser, user); err != nil {
		s.logger.WithError(err).Warn("Failed to persist logged-in user")
	}
	// a profile chosen under a previous login does not carry over
	s.store.Remove(ctx, s.keys.ActiveProfile)

	s.user = &user
	s.profile = nil
	s.expires = session.Expiry()
	s.state = StateAuthenticated
	s.logger.WithField("email", user.Email).Info("Logged in")
}

func (s *SessionService) reset() {
	s.state = StateLoggedOut
	s.user = nil
	s.profile = nil
	s.expires = time.Time{}
}

func (s *SessionService) snapshot() SessionSnapshot {
	snap := SessionSnapshot{State: s.state, ExpiresAt: s.expires}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	if s.profile != nil {
		profile := *s.profile
		snap.Profile = &profile
	}
	return snap
}

func profilesFor(user *models.AccountInfo) []models.Profile {
	name := defaultProfileName
	if user != nil && strings.TrimSpace(user.Name) != "" {
		name = user.Name
	}
	return []models.Profile{
		{ID: "1", Name: name, Avatar: "https://picsum.photos/id/64/200/200"},
		{ID: "2", Name: "Crianças", Avatar: "https://picsum.photos/id/103/200/200", IsKids: true},
		{ID: "3", Name: "Convidado", Avatar: "https://picsum.photos/id/177/200/200"},
	}
}
