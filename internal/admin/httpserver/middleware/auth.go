package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
	appsession "finitefield.org/store-admin/internal/admin/session"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// TokenCookieName is the cookie carrying the staff ID token after login.
const TokenCookieName = "Authorization"

// Failure reasons. They double as the reason query value on the login page.
const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	ReasonTokenExpired = "token_expired"
)

// User is the signed-in staff member.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// Authenticator turns a bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when a token does not identify anyone.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError carries the reason a token was refused.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err with a failure reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

func failureReason(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		return authErr.Reason
	}
	return ReasonTokenInvalid
}

// DevAuthenticator trusts the token as an identity, for local runs without
// Firebase. A token of the form "uid:manager,clerk" signs in with those
// roles; a bare uid gets the fallback roles, or admin when none are given.
func DevAuthenticator(fallback ...string) Authenticator {
	if len(fallback) == 0 {
		fallback = []string{string(rbac.RoleAdmin)}
	}
	return devAuthenticator{fallback: fallback}
}

type devAuthenticator struct {
	fallback []string
}

func (a devAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	uid, rawRoles, _ := strings.Cut(strings.TrimSpace(token), ":")
	if uid == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	var roles []string
	for _, raw := range strings.Split(rawRoles, ",") {
		if role, ok := rbac.ParseRole(raw); ok {
			roles = append(roles, string(role))
		}
	}
	if len(roles) == 0 {
		roles = append(roles, a.fallback...)
	}
	return &User{UID: uid, Roles: roles, Token: token}, nil
}

// Auth resolves the staff member from the Authorization header or the token
// cookie. Anonymous page loads are sent to loginPath with the reason and the
// page they asked for; htmx callers get 401 with HX-Redirect.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		panic("middleware: authenticator is required")
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			token := tokenFromRequest(r)
			if token == "" {
				denyAccess(w, r, loginPath, ReasonMissingToken)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := failureReason(err)
				logger.Warn("staff token rejected", zap.String("reason", reason), zap.Error(err))
				denyAccess(w, r, loginPath, reason)
				return
			}
			if user.Token == "" {
				user.Token = token
			}
			rememberUser(r.Context(), user)

			ctx := WithUser(r.Context(), user)
			ctx = observability.WithLogger(ctx, logger.With(zap.String("staff_uid", user.UID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the staff member resolved by Auth.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

// WithUser attaches user to ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func tokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	c, err := r.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	value := strings.TrimSpace(c.Value)
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	if token := bearerToken(value); token != "" {
		return token
	}
	return value
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// rememberUser mirrors the staff member onto the session. A different UID
// drops the previous store selection.
func rememberUser(ctx context.Context, user *User) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return
	}
	if previous := sess.User(); previous != nil && previous.UID != user.UID {
		sess.ClearStore()
	}
	sess.SetUser(&appsession.User{
		UID:   user.UID,
		Email: user.Email,
		Roles: append([]string(nil), user.Roles...),
	})
}

func denyAccess(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	if sess, ok := SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}

	target := loginRedirect(loginPath, reason, r.URL.RequestURI())
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func loginRedirect(loginPath, reason, next string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath
	}
	q := u.Query()
	if reason != ReasonMissingToken {
		q.Set("reason", reason)
	}
	if next != "" && next != "/" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
