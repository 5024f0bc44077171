package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/rbac"
)

func TestSetRawQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want url.Values
	}{
		{raw: "q=centro&page=2", want: url.Values{"q": {"centro"}, "page": {"3"}}},
		{raw: "q=centro", want: url.Values{"q": {"centro"}, "page": {"3"}}},
		{raw: "", want: url.Values{"page": {"3"}}},
		{raw: "%zz", want: url.Values{"page": {"3"}}},
	}
	for _, tc := range cases {
		got, err := url.ParseQuery(SetRawQuery(tc.raw, "page", "3"))
		require.NoError(t, err)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestBuildURLAndJoinPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/admin/stores?page=2&q=centro", BuildURL("/admin/stores", "page=2&q=centro"))
	require.Equal(t, "/admin/stores", BuildURL("/admin/stores?page=1", ""))

	require.Equal(t, "/admin/stores", JoinPath("/admin/", "stores"))
	require.Equal(t, "/stores", JoinPath("/", "/stores"))
	require.Equal(t, "/admin", JoinPath("/admin", ""))
	require.Equal(t, "/", JoinPath("", ""))
}

func TestMoneyAndDate(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"89.9": "R$ 89,90",
		"10":   "R$ 10,00",
		"":     "—",
		"a.b":  "R$ a,b",
	} {
		require.Equal(t, want, Money(in), in)
	}

	ts := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	require.Equal(t, "01/05/2024 12:30", Date(ts, ""))
	require.Empty(t, Date(time.Time{}, ""))
}

func TestCSRFFieldEscapes(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	require.NoError(t, CSRFField(`"x"<b>&`).Render(context.Background(), &buf))
	require.Equal(t, `<input type="hidden" name="csrf_token" value="&#34;x&#34;&lt;b&gt;&amp;">`, buf.String())
}

func TestHighlightSegments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text, term string
		want       []HighlightSegment
	}{
		{
			text: "Loja Centro", term: "centro",
			want: []HighlightSegment{{Text: "Loja "}, {Text: "Centro", Match: true}},
		},
		{
			text: "São Paulo", term: "sao",
			want: []HighlightSegment{{Text: "São", Match: true}, {Text: " Paulo"}},
		},
		{
			text: "Ana e Ana", term: "ana",
			want: []HighlightSegment{{Text: "Ana", Match: true}, {Text: " e "}, {Text: "Ana", Match: true}},
		},
		{text: "Loja", term: " ", want: []HighlightSegment{{Text: "Loja"}}},
		{text: "Loja", term: "praia", want: []HighlightSegment{{Text: "Loja"}}},
		{text: "", term: "x"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HighlightSegments(tc.text, tc.term), "%q / %q", tc.text, tc.term)
	}
}

func TestNavActive(t *testing.T) {
	t.Parallel()

	var ctx context.Context
	middleware.RequestInfoMiddleware("/admin", "")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/stores/3/products/", nil))

	require.Equal(t, "/admin", BasePath(ctx))
	require.True(t, NavActive(ctx, "/admin/stores", true))
	require.False(t, NavActive(ctx, "/admin/stores", false))
	require.True(t, NavActive(ctx, "admin//stores/3/products", false))
	require.False(t, NavActive(ctx, "/admin/store", true), "prefix matches whole segments")
	require.False(t, NavActive(ctx, "/", true))
	require.False(t, NavActive(ctx, "", true))
}

func TestCan(t *testing.T) {
	t.Parallel()

	clerk := middleware.WithUser(context.Background(), &middleware.User{UID: "c", Roles: []string{"clerk"}})

	require.True(t, Can(clerk, rbac.CapProductListView))
	require.False(t, Can(clerk, rbac.CapProductListView, rbac.CapStoresManage))
	require.True(t, Can(clerk, ""), "blank capability is unrestricted")
	require.True(t, Can(context.Background()))
	require.False(t, Can(context.Background(), rbac.CapStoresView))
}
