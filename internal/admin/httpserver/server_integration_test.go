package httpserver_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/exports"
	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/testutil"
)

func TestAdminRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts.URL, "")

	resp := client.Get("/admin", nil)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login?next=%2Fadmin", resp.Header.Get("Location"))
}

func TestHomeRedirectsToStores(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.Get("/admin/", nil)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/stores", resp.Header.Get("Location"))
}

func TestStoresPageRendersForAuthenticatedUser(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth), testutil.WithEnvironment("Staging"))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.Get("/admin/stores", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store, max-age=0", resp.Header.Get("Cache-Control"))
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))

	require.Equal(t, "Lojas · Painel das Lojas", doc.Find("title").First().Text())
	require.Equal(t, 3, doc.Find("[data-stores-table] tbody tr").Length())
	require.Equal(t, 1, doc.Find("[data-new-store]").Length(), "admins may create stores")
	require.NotEmpty(t, doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""))
	require.Equal(t, "STG", strings.TrimSpace(doc.Find("[data-environment-badge] span[aria-hidden='true']").Text()))

	resp = client.Get("/admin/stores?q=centro", nil)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, 1, doc.Find("[data-stores-table] tbody tr").Length())
	require.Equal(t, "Centro", doc.Find("[data-stores-table] mark").First().Text())
}

func TestStoresSearchAnswersHTMXWithFragment(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"clerk"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	header := http.Header{}
	header.Set("HX-Request", "true")
	resp := client.Get("/admin/stores?q=praia", header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ReadBody(t, resp)

	require.NotContains(t, string(body), "<html")
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 1, doc.Find("#stores-page").Length())
	require.Equal(t, 0, doc.Find("[data-new-store]").Length(), "clerks cannot create stores")
	require.Equal(t, 0, doc.Find("[data-edit-link]").Length())
	require.Contains(t, doc.Find("[data-stores-table] tbody tr").Text(), "Inativa")
}

func TestClerkCannotManageStores(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "clerk-token", Roles: []string{"clerk"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.Get("/admin/stores/new", nil)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = client.PostForm("/admin/stores/1/products/1", url.Values{"stockQuantity": {"3"}, "salePrice": {"10"}}, true)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStoreCreateValidatesAndRedirects(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.PostForm("/admin/stores", url.Values{"name": {"   "}, "city": {"Campinas"}}, false)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, "Informe o nome da loja.", doc.Find("#store-name-error").Text())
	require.Equal(t, "Campinas", doc.Find("#store-city").AttrOr("value", ""), "submitted values are kept")

	resp = client.PostForm("/admin/stores", url.Values{"name": {"Loja Campinas"}, "city": {"Campinas"}, "isActive": {"true"}}, false)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/stores?status=created", resp.Header.Get("Location"))

	resp = client.Get("/admin/stores?q=campinas&status=created", nil)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, 1, doc.Find("[data-stores-table] tbody tr").Length())
	require.Contains(t, doc.Find(".alert--success").Text(), "Loja criada.")
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/admin/stores/1/delete", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+auth.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStockRowInlineUpdate(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"manager"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.Get("/admin/stores/1/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, 9, doc.Find("[data-stock-table] tbody tr").Length())
	require.Equal(t, 7, doc.Find(`[data-stock-table] tr[data-eligible="true"]`).Length())
	require.Equal(t, "/admin/product-list?store=1", doc.Find("[data-product-list-link]").AttrOr("href", ""))

	resp = client.PostForm("/admin/stores/1/products/3", url.Values{
		"active":        {"true"},
		"stockQuantity": {"-1"},
		"salePrice":     {"89,901"},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = testutil.ParseRow(t, testutil.ReadBody(t, resp))
	row := doc.Find("#stock-row-3")
	require.Equal(t, 1, row.Length())
	require.Equal(t, "Morango", row.Find("td").Eq(2).Text(), "row keeps the product columns")
	require.Equal(t, "A quantidade não pode ser negativa.", row.Find(`[data-error-for="stockQuantity"]`).Text())
	require.NotEmpty(t, row.Find(`[data-error-for="salePrice"]`).Text())
	require.Equal(t, "-1", row.Find(`input[name="stockQuantity"]`).AttrOr("value", ""))

	resp = client.PostForm("/admin/stores/1/products/3", url.Values{
		"active":        {"true"},
		"stockQuantity": {"5"},
		"salePrice":     {"89,9"},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = testutil.ParseRow(t, testutil.ReadBody(t, resp))
	row = doc.Find("#stock-row-3")
	require.Equal(t, "true", row.AttrOr("data-eligible", ""))
	require.Equal(t, "Salvo.", row.Find(".row-message").Text())
	require.Equal(t, "89,90", row.Find(`input[name="salePrice"]`).AttrOr("value", ""))
}

func TestProductListFlow(t *testing.T) {
	t.Parallel()

	archiver := &recordingArchiver{}
	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"clerk"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth), testutil.WithArchiver(archiver))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.Get("/admin/product-list", nil)
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, 1, doc.Find("[data-no-store]").Length(), "nothing selected yet")
	require.Equal(t, 4, doc.Find("[data-store-picker] option").Length(), "placeholder plus three stores")

	resp = client.PostForm("/admin/stores/1/select", nil, false)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/product-list", resp.Header.Get("Location"))

	resp = client.Get("/admin/product-list", nil)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	panel := doc.Find("#product-list-panel")
	require.Equal(t, "load", panel.AttrOr("hx-trigger", ""), "first view loads automatically")
	require.Equal(t, "/admin/product-list/refresh?store=1", panel.AttrOr("hx-post", ""))
	require.Equal(t, "Loja Centro", doc.Find("[data-store-name]").Text())
	require.Equal(t, "Loja Centro", doc.Find("[data-selected-store]").Text())

	resp = client.PostForm("/admin/product-list/refresh?store=1", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	text := doc.Find("[data-product-list-text]").Text()
	require.True(t, strings.HasPrefix(text, "✨ *LISTA DE PRODUTOS* ✨\n"))
	require.Contains(t, text, "🚚 Frete grátis para Loja Centro!\n")
	require.Contains(t, text, "🔴 *V80 - R$89,90*\n- Menta\n- Uva Gelada\n\n")
	require.NotContains(t, text, "Morango", "out of stock records are excluded")
	require.NotContains(t, text, "Kiwi", "inactive records are excluded")
	require.Less(t, strings.Index(text, "Ártico"), strings.Index(text, "BC5000"))
	require.Less(t, strings.Index(text, "BC5000"), strings.Index(text, "V150"), "brands sort before names")
	require.Equal(t, 0, doc.Find("[data-product-list-error]").Length())
	require.Equal(t, 1, doc.Find("[data-archive]").Length())

	resp = client.Get("/admin/product-list/export.txt?store=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `attachment; filename="lista-produtos-1.txt"`, resp.Header.Get("Content-Disposition"))
	require.Equal(t, text, string(testutil.ReadBody(t, resp)))

	resp = client.PostForm("/admin/product-list/copy?store=1", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, text, string(testutil.ReadBody(t, resp)))

	resp = client.PostForm("/admin/product-list/archive?store=1", nil, true)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, resp.Header.Get("HX-Trigger"), "Lista arquivada.")

	entries := archiver.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "1", entries[0].StoreID)
	require.Equal(t, "Loja Centro", entries[0].StoreName)
	require.Equal(t, text, entries[0].Text)
	require.Equal(t, "tester@example.com", entries[0].Actor)
}

func TestProductListErrorReplacesPreviousResult(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.PostForm("/admin/product-list/refresh?store=99", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Contains(t, doc.Find("[data-product-list-error]").Text(), "Falha ao carregar os produtos")
	require.Equal(t, 0, doc.Find("[data-product-list-text]").Length())
	require.Equal(t, 0, doc.Find("[data-copy]").Length(), "nothing to copy after a failure")

	resp = client.PostForm("/admin/product-list/refresh?store=abc", nil, true)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Contains(t, doc.Find("[data-product-list-error]").Text(), "Nenhuma loja selecionada")

	resp = client.Get("/admin/product-list/export.txt?store=99", nil)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = client.PostForm("/admin/product-list/archive?store=99", nil, true)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, resp.Header.Get("HX-Trigger"), "Gere a lista antes de arquivar.")
}

func TestLogoutDropsProductListings(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"clerk"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, auth.Token)

	resp := client.PostForm("/admin/product-list/refresh?store=1", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = testutil.ReadBody(t, resp)

	resp = client.Get("/admin/product-list/export.txt?store=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = testutil.ReadBody(t, resp)

	resp = client.PostForm("/admin/logout", nil, false)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login?status=logged_out", resp.Header.Get("Location"))

	resp = client.Get("/admin/product-list/export.txt?store=1", nil)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "the snapshot left with the session")
}

func TestLoginSetsTokenCookie(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "login-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	client := testutil.NewClient(t, ts.URL, "")

	resp := client.Get("/admin/login?reason=token_expired", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.Equal(t, 1, doc.Find("[data-login-form]").Length())
	require.Contains(t, doc.Find("[data-login-message]").Text(), "Sua sessão expirou")

	resp = client.PostForm("/admin/login", url.Values{"id_token": {"wrong"}}, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc = testutil.ParseHTML(t, testutil.ReadBody(t, resp))
	require.NotEmpty(t, doc.Find("[data-login-error]").Text())

	resp = client.PostForm("/admin/login", url.Values{"id_token": {"login-token"}, "next": {"/admin/product-list"}}, false)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/product-list", resp.Header.Get("Location"))

	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookieName {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie)
	require.True(t, tokenCookie.HttpOnly)

	resp = client.Get("/admin/product-list", nil)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode, "cookie authenticates follow-up requests")
}

type tokenAuthenticator struct {
	Token string
	Roles []string
}

func (t *tokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token != t.Token {
		return nil, middleware.ErrUnauthorized
	}
	return &middleware.User{
		UID:   "tester",
		Email: "tester@example.com",
		Token: token,
		Roles: t.Roles,
	}, nil
}

type recordingArchiver struct {
	mu      sync.Mutex
	entries []exports.Entry
}

func (a *recordingArchiver) Archive(_ context.Context, entry exports.Entry) (exports.Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return exports.Receipt{Bucket: "test", Object: "product-lists/" + entry.StoreID + "/x.txt", Size: len(entry.Text)}, nil
}

func (a *recordingArchiver) Entries() []exports.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]exports.Entry(nil), a.entries...)
}
