package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appsession "finitefield.org/store-admin/internal/admin/session"
)

type sessionTestClock struct {
	now time.Time
}

func (c *sessionTestClock) Now() time.Time { return c.now }

func newSessionStoreForTest(t *testing.T, clock *sessionTestClock) *appsession.Manager {
	t.Helper()

	store, err := appsession.NewManager(appsession.Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		CookiePath:  "/admin",
		IdleTimeout: 5 * time.Minute,
		Lifetime:    time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return store
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	return nil
}

func TestSessionSurvivesUntilIdleTimeout(t *testing.T) {
	t.Parallel()

	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	var ids []string
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if ok {
			ids = append(ids, sess.ID())
		}
	}))
	visit := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/stores", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	cookie := sessionCookie(visit(nil))
	require.NotNil(t, cookie, "first visit issues a session cookie")

	clock.now = clock.now.Add(2 * time.Minute)
	visit(cookie)

	clock.now = clock.now.Add(15 * time.Minute)
	renewed := sessionCookie(visit(cookie))

	require.Len(t, ids, 3)
	require.NotEmpty(t, ids[0])
	require.Equal(t, ids[0], ids[1], "activity inside the idle window keeps the session")
	require.NotEqual(t, ids[1], ids[2], "an idle session is replaced")
	require.NotNil(t, renewed)
}

func TestSessionSavedBeforeBody(t *testing.T) {
	t.Parallel()

	store := newSessionStoreForTest(t, &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)})
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		sess.SelectStore("12", "Loja Centro")
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/stores/12/select", nil))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/admin/product-list", nil)
	req.AddCookie(cookie)
	sess, err := store.Load(req)
	require.NoError(t, err)

	sel, ok := sess.Store()
	require.True(t, ok)
	require.Equal(t, appsession.StoreSelection{ID: "12", Name: "Loja Centro"}, sel)
}

func TestSessionDestroyedOnLogout(t *testing.T) {
	t.Parallel()

	store := newSessionStoreForTest(t, &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)})
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		sess.Destroy()
		w.WriteHeader(http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	require.Negative(t, cookie.MaxAge, "the cookie is expired")
}
