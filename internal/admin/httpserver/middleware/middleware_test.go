package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/rbac"
)

type stubAuthenticator struct {
	token string
	user  *User
	err   error
}

func (s *stubAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token != s.token {
		return nil, ErrUnauthorized
	}
	return s.user, s.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	newHandler := func(auth Authenticator) http.Handler {
		return HTMX()(Auth(auth, "/admin/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := UserFromContext(r.Context()); ok {
				w.Header().Set("X-Staff", user.UID)
			}
			w.WriteHeader(http.StatusOK)
		})))
	}
	valid := &stubAuthenticator{token: "valid", user: &User{UID: "user-1"}}

	t.Run("missing token redirects with next", func(t *testing.T) {
		t.Parallel()
		rr := httptest.NewRecorder()
		newHandler(valid).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/product-list?store=2", nil))
		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, "/admin/login?next=%2Fadmin%2Fproduct-list%3Fstore%3D2", rr.Header().Get("Location"))
	})

	t.Run("htmx caller gets 401 with HX-Redirect", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/admin/product-list/refresh", nil)
		req.Header.Set("HX-Request", "true")
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		newHandler(valid).ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Contains(t, rr.Header().Get("HX-Redirect"), "reason=token_invalid")
	})

	t.Run("expired token carries the reason", func(t *testing.T) {
		t.Parallel()
		expired := &stubAuthenticator{token: "valid", user: &User{UID: "user-1"}, err: NewAuthError(ReasonTokenExpired, errors.New("expired"))}
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rr := httptest.NewRecorder()
		newHandler(expired).ServeHTTP(rr, req)
		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, "/admin/login?next=%2Fadmin&reason=token_expired", rr.Header().Get("Location"))
	})

	t.Run("bearer header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "bearer  valid")
		rr := httptest.NewRecorder()
		newHandler(valid).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "user-1", rr.Header().Get("X-Staff"))
	})

	t.Run("escaped token cookie", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: url.QueryEscape("Bearer valid")})
		rr := httptest.NewRecorder()
		newHandler(valid).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAuthResetsStoreForNewStaff(t *testing.T) {
	t.Parallel()

	store := newSessionStoreForTest(t, &sessionTestClock{now: time.Now()})
	sess := store.New()
	sess.SelectStore("2", "Loja Praia")

	auth := &stubAuthenticator{token: "valid", user: &User{UID: "user-1", Roles: []string{"clerk"}}}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer valid")
	req = req.WithContext(context.WithValue(req.Context(), sessionKey{}, sess))

	Auth(auth, "")(http.HandlerFunc(okHandler)).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "user-1", sess.User().UID)
	_, selected := sess.Store()
	require.True(t, selected, "first sign-in keeps the selection")

	other := &stubAuthenticator{token: "valid", user: &User{UID: "user-2"}}
	Auth(other, "")(http.HandlerFunc(okHandler)).ServeHTTP(httptest.NewRecorder(), req)
	_, selected = sess.Store()
	require.False(t, selected, "another staff member starts without a store")
}

func TestDevAuthenticator(t *testing.T) {
	t.Parallel()

	auth := DevAuthenticator()

	user, err := auth.Authenticate(nil, "ana:manager,Clerk,owner")
	require.NoError(t, err)
	require.Equal(t, "ana", user.UID)
	require.Equal(t, []string{"manager", "clerk"}, user.Roles)

	user, err = auth.Authenticate(nil, "bruno")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, user.Roles)

	user, err = DevAuthenticator("clerk").Authenticate(nil, "carla:")
	require.NoError(t, err)
	require.Equal(t, []string{"clerk"}, user.Roles)

	_, err = auth.Authenticate(nil, "  ")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, ReasonMissingToken, failureReason(err))
}

func TestCSRFMiddleware(t *testing.T) {
	t.Parallel()

	mw := CSRF(CSRFConfig{CookieName: "csrf"})
	post := func(token, header string, form url.Values) *http.Request {
		var body *strings.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		} else {
			body = strings.NewReader("")
		}
		req := httptest.NewRequest(http.MethodPost, "/admin", body)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if token != "" {
			req.AddCookie(&http.Cookie{Name: "csrf", Value: token})
		}
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		return req
	}

	t.Run("issues cookie on GET", func(t *testing.T) {
		t.Parallel()
		var seen string
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = CSRFTokenFromContext(r.Context())
		})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

		require.NotEmpty(t, seen)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "csrf", cookies[0].Name)
		require.Equal(t, seen, cookies[0].Value)
		require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	})

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{name: "missing header", req: post("token", "", nil), want: http.StatusForbidden},
		{name: "mismatched header", req: post("token", "other", nil), want: http.StatusForbidden},
		{name: "matching header", req: post("token", "token", nil), want: http.StatusOK},
		{name: "matching form field", req: post("token", "", url.Values{CSRFFormField: {"token"}}), want: http.StatusOK},
		{name: "no cookie at all", req: post("", "token", nil), want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			mw(http.HandlerFunc(okHandler)).ServeHTTP(rr, tc.req)
			require.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestCSRFPrefersSessionToken(t *testing.T) {
	t.Parallel()

	store := newSessionStoreForTest(t, &sessionTestClock{now: time.Now()})
	sess := store.New()
	bound, err := sess.EnsureCSRFToken()
	require.NoError(t, err)

	withSession := func(req *http.Request) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), sessionKey{}, sess))
	}
	handler := HTMX()(CSRF(CSRFConfig{CookieName: "csrf"})(http.HandlerFunc(okHandler)))

	req := withSession(httptest.NewRequest(http.MethodPost, "/admin", nil))
	req.AddCookie(&http.Cookie{Name: "csrf", Value: "stale"})
	req.Header.Set("X-CSRF-Token", "stale")
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code, "a stale cookie no longer matches the session")
	require.Contains(t, rr.Header().Get("HX-Trigger"), ToastEvent)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, bound, cookies[0].Value, "cookie is realigned with the session")

	req = withSession(httptest.NewRequest(http.MethodPost, "/admin", nil))
	req.Header.Set("X-CSRF-Token", bound)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHTMXMiddleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		headers  map[string]string
		request  bool
		fragment bool
	}{
		{name: "plain navigation"},
		{name: "htmx swap", headers: map[string]string{"HX-Request": "true", "HX-Target": "stores-page"}, request: true, fragment: true},
		{name: "boosted link", headers: map[string]string{"HX-Request": "true", "HX-Boosted": "true"}, request: true},
		{name: "history restore", headers: map[string]string{"HX-Request": "true", "HX-History-Restore-Request": "true"}, request: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var info HTMXInfo
			req := httptest.NewRequest(http.MethodGet, "/admin/stores", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			HTMX()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				info = HTMXInfoFromContext(r.Context())
			})).ServeHTTP(rr, req)

			require.Equal(t, tc.request, info.Request)
			require.Equal(t, tc.fragment, info.WantsFragment())
			require.Equal(t, tc.headers["HX-Target"], info.Target)
			require.Contains(t, rr.Header().Values("Vary"), "HX-Request")
		})
	}
}

func TestToast(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Toast(rr, "Lista arquivada.", "")

	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &payload))
	require.Equal(t, map[string]string{"message": "Lista arquivada.", "tone": "info"}, payload[ToastEvent])
}

func TestNoStoreMiddleware(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NoStore()(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store, max-age=0", rr.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rr.Header().Get("Pragma"))
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	handler := HTMX()(RequireCapability(rbac.CapInventoryManage)(http.HandlerFunc(okHandler)))

	cases := []struct {
		name  string
		user  *User
		htmx  bool
		want  int
		toast bool
	}{
		{name: "no user", want: http.StatusForbidden},
		{name: "clerk denied", user: &User{UID: "c", Roles: []string{"clerk"}}, want: http.StatusForbidden},
		{name: "clerk denied over htmx", user: &User{UID: "c", Roles: []string{"clerk"}}, htmx: true, want: http.StatusForbidden, toast: true},
		{name: "manager allowed", user: &User{UID: "m", Roles: []string{"manager"}}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/admin/stores/1/products/2", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			if tc.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.want, rr.Code)
			require.Equal(t, tc.toast, rr.Header().Get("HX-Trigger") != "")
		})
	}
}

func TestRequestInfoMiddleware(t *testing.T) {
	t.Parallel()

	var info RequestInfo
	handler := chimw.RequestID(RequestInfoMiddleware("admin/", " Staging ")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = RequestInfoFromContext(r.Context())
	})))
	req := httptest.NewRequest(http.MethodGet, "/admin/stores", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, RequestInfo{Path: "/admin/stores", BasePath: "/admin", Environment: "Staging", RequestID: "req-42"}, info)

	bare := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	require.Equal(t, "Development", EnvironmentFromContext(bare))
	require.Equal(t, "/", BasePathFromContext(bare))
	require.Empty(t, RequestPathFromContext(bare))
}

func TestNormaliseBasePath(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"":              "/",
		"/":             "/",
		"admin":         "/admin",
		" /admin/ ":     "/admin",
		"//ops//admin/": "/ops/admin",
	} {
		require.Equal(t, want, NormaliseBasePath(in), in)
	}
}
