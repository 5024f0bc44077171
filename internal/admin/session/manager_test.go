package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time { return c.current }

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout: 10 * time.Minute,
		Lifetime:    2 * time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return mgr, clock
}

func saveCookie(t *testing.T, mgr *Manager, sess *Session) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", rec.Header().Values("Set-Cookie"))
	return nil
}

func loadWith(mgr *Manager, cookie *http.Cookie) (*Session, error) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return mgr.Load(req)
}

func TestManagerRoundTrip(t *testing.T) {
	t.Parallel()

	mgr, clock := newTestManager(t)

	sess, err := loadWith(mgr, nil)
	require.NoError(t, err)
	require.Len(t, sess.ID(), 26, "session ids are ULIDs")
	require.Equal(t, clock.current, sess.CreatedAt())
	_, ok := sess.Store()
	require.False(t, ok)

	sess.SetUser(&User{UID: "user-1", Email: "gerente@example.com", Roles: []string{"manager"}})
	sess.SelectStore(" 12 ", "Loja Centro")
	token, err := sess.EnsureCSRFToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cookie := saveCookie(t, mgr, sess)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	clock.current = clock.current.Add(5 * time.Minute)
	loaded, err := loadWith(mgr, cookie)
	require.NoError(t, err)
	require.False(t, loaded.Dirty(), "a decoded session starts clean")
	require.Equal(t, sess.ID(), loaded.ID())
	require.Equal(t, "gerente@example.com", loaded.User().Email)
	require.Equal(t, token, loaded.CSRFToken())

	store, ok := loaded.Store()
	require.True(t, ok)
	require.Equal(t, StoreSelection{ID: "12", Name: "Loja Centro"}, store)

	loaded.SelectStore("", "")
	_, ok = loaded.Store()
	require.False(t, ok)
	require.True(t, loaded.Dirty())
}

func TestManagerExpiry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		step    time.Duration
		visits  int
		expired bool
	}{
		{name: "active within idle window", step: 9 * time.Minute, visits: 1},
		{name: "idle too long", step: 11 * time.Minute, visits: 1, expired: true},
		{name: "kept alive past lifetime", step: 9 * time.Minute, visits: 14, expired: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr, clock := newTestManager(t)
			sess, err := loadWith(mgr, nil)
			require.NoError(t, err)
			cookie := saveCookie(t, mgr, sess)

			for i := 0; i < tc.visits; i++ {
				clock.current = clock.current.Add(tc.step)
				sess, err = loadWith(mgr, cookie)
				if err != nil {
					break
				}
				cookie = saveCookie(t, mgr, sess)
			}
			if tc.expired {
				require.ErrorIs(t, err, ErrExpired)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestManagerTamperedCookieStartsFresh(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	sess, err := loadWith(mgr, &http.Cookie{Name: "test_session", Value: "tampered"})
	require.NoError(t, err)
	require.True(t, sess.Dirty())
	require.Nil(t, sess.User())
}

func TestManagerDestroy(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.Destroy()

	cookie := saveCookie(t, mgr, sess)
	require.Equal(t, -1, cookie.MaxAge)
	require.Empty(t, cookie.Value)
}

func TestSessionRotate(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.SelectStore("3", "Loja Praia")
	before := sess.ID()
	oldToken, err := sess.EnsureCSRFToken()
	require.NoError(t, err)

	sess.Rotate()

	require.NotEqual(t, before, sess.ID())
	require.Empty(t, sess.CSRFToken())
	newToken, err := sess.EnsureCSRFToken()
	require.NoError(t, err)
	require.NotEqual(t, oldToken, newToken)
	_, ok := sess.Store()
	require.True(t, ok, "rotation keeps the contents")
}

func TestSetUserCopiesRoles(t *testing.T) {
	t.Parallel()

	sess := &Session{}
	roles := []string{"clerk"}
	sess.SetUser(&User{UID: "u", Roles: roles})
	roles[0] = "admin"
	require.Equal(t, []string{"clerk"}, sess.User().Roles)

	sess.dirty = false
	sess.SetUser(&User{UID: "u", Roles: []string{"clerk"}})
	require.False(t, sess.Dirty(), "an identical user is not a change")

	sess.SetUser(nil)
	require.Nil(t, sess.User())
	require.True(t, sess.Dirty())
}

func TestNewManagerRejectsBadKeys(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
