package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"netbons/internal/config"
	"netbons/internal/kvstore"
	"netbons/internal/models"
	"netbons/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = config.Keys("v5")

type sessionFixture struct {
	backend *kvstore.MemoryBackend
	store   *kvstore.Store
	users   repository.UserRepository
	clock   time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	backend := kvstore.NewMemoryBackend()
	store := kvstore.New(backend, quietLogger())
	return &sessionFixture{
		backend: backend,
		store:   store,
		users:   repository.NewUserRepository(store, testKeys.RegisteredUsers),
		clock:   fixedNow,
	}
}

// machine builds a fresh state machine over the fixture's storage, as a
// process restart would.
func (f *sessionFixture) machine() *SessionService {
	s := NewSessionService(f.store, f.users, testKeys, 0, quietLogger())
	s.now = func() time.Time { return f.clock }
	return s
}

func (f *sessionFixture) register(t *testing.T, email, password, name string) {
	t.Helper()
	require.NoError(t, f.users.Append(context.Background(), models.UserRecord{Email: email, Password: password, Name: name}))
}

func TestLoginThenSelectProfile(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.register(t, "ana@example.com", "segredo", "Ana")
	s := f.machine()

	snap, err := s.Login(ctx, "  ANA@example.com ", "segredo")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "Ana", snap.User.Name)

	p, err := s.SelectProfile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, StateProfileActive, s.Snapshot().State)

	active, err := s.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, p, active)
}

func TestLoginFailuresLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.register(t, "ana@example.com", "segredo", "Ana")
	s := f.machine()

	snap, err := s.Login(ctx, "ana@example.com", "errado")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, StateLoggedOut, snap.State)

	_, err = s.Login(ctx, "bia@example.com", "segredo")
	assert.ErrorIs(t, err, ErrEmailNotFound)
	assert.NotErrorIs(t, err, ErrWrongPassword)

	_, ok, _ := f.backend.Get(ctx, testKeys.Session)
	assert.False(t, ok)
}

func TestSignupRules(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	s := f.machine()

	_, err := s.Signup(ctx, "Ana", "ana@example.com", "abc")
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Empty(t, f.users.List(ctx))

	snap, err := s.Signup(ctx, "", " Ana@Example.com ", "abcd")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, defaultUserName, snap.User.Name)
	assert.Equal(t, "ana@example.com", snap.User.Email)

	_, err = f.machine().Signup(ctx, "Outra", "ANA@EXAMPLE.COM", "abcdef")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// duplicates are reported before weak passwords
	_, err = f.machine().Signup(ctx, "Outra", "ana@example.com", "a")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.machine().Signup(ctx, "Sem Email", "  ", "abcd")
	assert.ErrorIs(t, err, ErrMissingEmail)

	users := f.users.List(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "abcd", users[0].Password)
}

func TestPasswordLengthCountsRunes(t *testing.T) {
	_, err := newSessionFixture(t).machine().Signup(context.Background(), "Zé", "ze@example.com", "ção!")
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.register(t, "ana@example.com", "segredo", "Ana")

	first := f.machine()
	_, err := first.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	_, err = first.SelectProfile(ctx, "2")
	require.NoError(t, err)

	snap := f.machine().Restore(ctx)
	assert.Equal(t, StateProfileActive, snap.State)
	assert.Equal(t, "Crianças", snap.Profile.Name)
	assert.True(t, snap.Profile.IsKids)

	// just before expiry the session still resumes
	f.clock = fixedNow.Add(defaultSessionTTL - time.Minute)
	assert.Equal(t, StateProfileActive, f.machine().Restore(ctx).State)

	f.clock = fixedNow.Add(defaultSessionTTL + time.Minute)
	snap = f.machine().Restore(ctx)
	assert.Equal(t, StateLoggedOut, snap.State)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
}

func TestRestoreIgnoresOtherDataWithoutLiveSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	require.NoError(t, f.store.Set(ctx, testKeys.LoggedUser, models.AccountInfo{Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, f.store.Set(ctx, testKeys.ActiveProfile, models.Profile{ID: "1", Name: "Ana"}))
	assert.Equal(t, StateLoggedOut, f.machine().Restore(ctx).State)

	require.NoError(t, f.backend.Set(ctx, testKeys.Session, `{"expiresAt":`))
	assert.Equal(t, StateLoggedOut, f.machine().Restore(ctx).State)

	require.NoError(t, f.store.Set(ctx, testKeys.Session, models.Session{ExpiresAt: fixedNow.Add(-time.Second).UnixMilli()}))
	assert.Equal(t, StateLoggedOut, f.machine().Restore(ctx).State)
}

func TestRestoreWithoutUserSlot(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	session := models.NewSession(fixedNow, defaultSessionTTL)
	require.NoError(t, f.store.Set(ctx, testKeys.Session, session))

	snap := f.machine().Restore(ctx)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Nil(t, snap.User)
	assert.Equal(t, session.Expiry(), snap.ExpiresAt)

	s := f.machine()
	s.Restore(ctx)
	profiles, err := s.Profiles()
	require.NoError(t, err)
	assert.Equal(t, defaultProfileName, profiles[0].Name)

	require.NoError(t, f.store.Set(ctx, testKeys.ActiveProfile, models.Profile{ID: "3", Name: "Convidado"}))
	snap = f.machine().Restore(ctx)
	assert.Equal(t, StateProfileActive, snap.State)
	assert.Equal(t, "Convidado", snap.Profile.Name)
}

func TestRestoreRejectsUnreadableUser(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	require.NoError(t, f.store.Set(ctx, testKeys.Session, models.NewSession(fixedNow, defaultSessionTTL)))
	require.NoError(t, f.store.Set(ctx, testKeys.ActiveProfile, models.Profile{ID: "1", Name: "Ana"}))
	require.NoError(t, f.backend.Set(ctx, testKeys.LoggedUser, `{"name":`))

	snap := f.machine().Restore(ctx)
	assert.Equal(t, StateLoggedOut, snap.State)
	assert.True(t, snap.ExpiresAt.IsZero())

	// a JSON null reads as a missing slot
	require.NoError(t, f.backend.Set(ctx, testKeys.LoggedUser, `null`))
	assert.Equal(t, StateProfileActive, f.machine().Restore(ctx).State)
}

func TestSnapshotCarriesPersistedExpiry(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.register(t, "ana@example.com", "segredo", "Ana")

	snap, err := f.machine().Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(defaultSessionTTL).UnixMilli(), snap.ExpiresAt.UnixMilli())

	// a later restart reports the stored expiry, not a fresh one
	f.clock = fixedNow.Add(48 * time.Hour)
	assert.Equal(t, snap.ExpiresAt, f.machine().Restore(ctx).ExpiresAt)
}

func TestRestoreAcceptsLegacyExpiry(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	expiry := fixedNow.Add(time.Hour).UnixMilli()
	require.NoError(t, f.backend.Set(ctx, testKeys.Session, `{"expiry":`+strconv.FormatInt(expiry, 10)+`}`))
	require.NoError(t, f.store.Set(ctx, testKeys.LoggedUser, models.AccountInfo{Name: "Ana", Email: "ana@example.com"}))

	assert.Equal(t, StateAuthenticated, f.machine().Restore(ctx).State)
}

func TestLoginDropsStaleProfile(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.register(t, "ana@example.com", "segredo", "Ana")
	require.NoError(t, f.store.Set(ctx, testKeys.ActiveProfile, models.Profile{ID: "3", Name: "Convidado"}))

	s := f.machine()
	_, err := s.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	_, ok, _ := f.backend.Get(ctx, testKeys.ActiveProfile)
	assert.False(t, ok)
	_, err = s.ActiveProfile()
	assert.ErrorIs(t, err, ErrProfileRequired)
}

func TestProfilesRequireLogin(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	s := f.machine()

	_, err := s.Profiles()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = s.SelectProfile(ctx, "1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = s.ActiveProfile()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = s.Signup(ctx, "Ana", "ana@example.com", "segredo")
	require.NoError(t, err)

	profiles, err := s.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, []string{"Ana", "Crianças", "Convidado"}, []string{profiles[0].Name, profiles[1].Name, profiles[2].Name})

	_, err = s.SelectProfile(ctx, "9")
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.Equal(t, StateAuthenticated, s.Snapshot().State)
}

func TestLogoutClearsSlotsAndRunsHooks(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	s := f.machine()
	require.NoError(t, f.store.Set(ctx, testKeys.Catalog, []models.Movie{{ID: "x"}}))

	var reloads int
	s.OnLogout(func(context.Context) { reloads++ })

	_, err := s.Signup(ctx, "Ana", "ana@example.com", "segredo")
	require.NoError(t, err)
	_, err = s.SelectProfile(ctx, "1")
	require.NoError(t, err)

	s.Logout(ctx)
	assert.Equal(t, StateLoggedOut, s.Snapshot().State)
	assert.Equal(t, 1, reloads)

	for _, key := range []string{testKeys.Session, testKeys.ActiveProfile, testKeys.LoggedUser} {
		_, ok, _ := f.backend.Get(ctx, key)
		assert.False(t, ok, key)
	}
	for _, key := range []string{testKeys.Catalog, testKeys.RegisteredUsers} {
		_, ok, _ := f.backend.Get(ctx, key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, StateLoggedOut, f.machine().Restore(ctx).State)
}
