package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
)

// ErrTokenExpired is returned when the Firebase token has expired.
var ErrTokenExpired = errors.New("firebase token expired")

var defaultRoleClaims = []string{"role", "roles"}

// FirebaseTokenVerifier is the part of the Firebase Admin auth client used here.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator verifies Firebase ID tokens issued to store staff.
type FirebaseAuthenticator struct {
	verifier   FirebaseTokenVerifier
	roleClaims []string
}

// NewFirebaseAuthenticator builds an Authenticator. Staff roles are read from
// roleClaims, "role" and "roles" when none are given.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier, roleClaims ...string) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	if len(roleClaims) == 0 {
		roleClaims = defaultRoleClaims
	}
	return &FirebaseAuthenticator{verifier: verifier, roleClaims: roleClaims}
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	claims := make([]any, 0, len(f.roleClaims))
	for _, name := range f.roleClaims {
		claims = append(claims, verified.Claims[name])
	}
	roles, unknown := staffRoles(claims...)
	if len(unknown) > 0 {
		observability.FromContext(r.Context()).Warn("ignoring unknown staff roles",
			zap.String("staff_uid", verified.UID),
			zap.Strings("roles", unknown),
		)
	}

	email, _ := verified.Claims["email"].(string)
	return &User{
		UID:   verified.UID,
		Email: strings.TrimSpace(email),
		Roles: roles,
		Token: token,
	}, nil
}

// staffRoles flattens role claims (a string, a list, or a map of role to
// bool) into canonical role names in first-seen order.
func staffRoles(values ...any) (roles, unknown []string) {
	seen := make(map[string]bool)
	add := func(raw string) {
		role, ok := rbac.ParseRole(raw)
		if !ok {
			if raw = strings.TrimSpace(raw); raw != "" {
				unknown = append(unknown, raw)
			}
			return
		}
		if !seen[string(role)] {
			seen[string(role)] = true
			roles = append(roles, string(role))
		}
	}

	for _, value := range values {
		switch v := value.(type) {
		case string:
			add(v)
		case []string:
			for _, item := range v {
				add(item)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			for key, val := range v {
				if enabled, ok := val.(bool); ok && enabled {
					add(key)
				}
			}
		}
	}
	return roles, unknown
}
