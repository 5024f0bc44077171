package httpserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
)

func TestSafeNext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"admin page", "/admin/product-list?store=1", "/admin/product-list?store=1"},
		{"base itself", "/admin", "/admin"},
		{"cleans dot segments", "/admin/stores/../product-list", "/admin/product-list"},
		{"outside base", "/other", ""},
		{"prefix lookalike", "/administrator", ""},
		{"absolute url", "https://evil.example/admin", ""},
		{"protocol relative", "//evil.example/admin", ""},
		{"backslash", "/admin\\..\\x", ""},
		{"login page", "/admin/login", ""},
		{"escaping base", "/admin/../etc", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, safeNext("/admin", "/admin/login", tc.raw))
		})
	}
}

func TestLoginFailureMessage(t *testing.T) {
	t.Parallel()

	expired := &custommw.AuthError{Reason: custommw.ReasonTokenExpired, Err: errors.New("exp")}
	require.Equal(t, msgSessionExpired, loginFailureMessage(expired))
	require.Equal(t, msgAuthFailed, loginFailureMessage(custommw.ErrUnauthorized))
	require.Contains(t, loginFailureMessage(errors.New("boom")), "Tente novamente em instantes")
}
