package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/observability"
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf.token"

// CSRFFormField is the form field accepted as an alternative to the header.
const CSRFFormField = "csrf_token"

const (
	defaultCSRFCookie = "admin_csrf"
	defaultCSRFHeader = "X-CSRF-Token"
	defaultCSRFMaxAge = 24 * time.Hour
)

// CSRFConfig controls cookie/header behaviour.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = defaultCSRFCookie
	}
	if c.HeaderName == "" {
		c.HeaderName = defaultCSRFHeader
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultCSRFMaxAge
	}
	return c
}

// CSRF enforces a double-submit token on unsafe methods. When the Session
// middleware runs first the token is bound to the session and mirrored into
// the cookie; otherwise the cookie alone carries it. The token must come back
// in the header or in the csrf_token form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := resolveCSRFToken(r, cfg.CookieName)
			if err != nil {
				observability.FromContext(r.Context()).Error("csrf token generation failed", zap.Error(err))
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}
			if c, err := r.Cookie(cfg.CookieName); err != nil || c.Value != token {
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     cfg.CookiePath,
					HttpOnly: true,
					Secure:   cfg.Secure || r.TLS != nil,
					SameSite: http.SameSiteStrictMode,
					MaxAge:   int(cfg.MaxAge.Seconds()),
				})
			}

			if unsafeMethod(r.Method) {
				submitted := r.Header.Get(cfg.HeaderName)
				if submitted == "" {
					submitted = r.PostFormValue(CSRFFormField)
				}
				if reason := checkCSRF(submitted, token); reason != "" {
					rejectCSRF(w, r, reason)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenContextKey, token)))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in forms and the csrf-token meta tag.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}

func resolveCSRFToken(r *http.Request, cookieName string) (string, error) {
	if sess, ok := SessionFromContext(r.Context()); ok && sess != nil {
		return sess.EnsureCSRFToken()
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return randomToken(32)
}

func checkCSRF(submitted, expected string) string {
	switch {
	case submitted == "":
		return "missing"
	case subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1:
		return "mismatch"
	default:
		return ""
	}
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	observability.FromContext(r.Context()).Warn("csrf check failed",
		zap.String("reason", reason),
		zap.String("path", r.URL.Path),
	)
	if IsHTMXRequest(r.Context()) {
		Toast(w, "Sua sessão foi renovada. Recarregue a página e tente de novo.", "warning")
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func randomToken(length int) (string, error) {
	key := securecookie.GenerateRandomKey(length)
	if key == nil {
		return "", errors.New("csrf: entropy unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
