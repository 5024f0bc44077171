package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// Client drives the admin server like a browser: it keeps cookies, sends the
// bearer token and echoes the CSRF token on unsafe requests.
type Client struct {
	t     testing.TB
	base  string
	token string
	http  *http.Client
}

// NewClient returns a client for ts authenticating with token. Redirects are
// not followed.
func NewClient(t testing.TB, baseURL, token string) *Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		t:     t,
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a GET request for path.
func (c *Client) Get(path string, header http.Header) *http.Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, header)
}

// PostForm issues a form POST including the CSRF token. htmx marks the
// request as coming from htmx.
func (c *Client) PostForm(path string, form url.Values, htmx bool) *http.Response {
	c.t.Helper()

	if form == nil {
		form = url.Values{}
	}
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("X-CSRF-Token", c.CSRFToken(path))
	if htmx {
		header.Set("HX-Request", "true")
	}
	return c.do(http.MethodPost, path, strings.NewReader(form.Encode()), header)
}

// CSRFToken returns the CSRF cookie for path, fetching a page first when the
// jar does not hold one yet.
func (c *Client) CSRFToken(path string) string {
	c.t.Helper()

	if token := c.cookie(path, CSRFCookieName); token != "" {
		return token
	}
	resp := c.Get(path, nil)
	_ = resp.Body.Close()
	return c.cookie(path, CSRFCookieName)
}

// ReadBody drains and closes the response body.
func ReadBody(t testing.TB, resp *http.Response) []byte {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return body
}

// ParseRow parses a bare <tr> fragment, as returned by inline row swaps.
// The HTML parser drops table rows outside a table, so the fragment is
// wrapped before parsing.
func ParseRow(t testing.TB, body []byte) *goquery.Document {
	t.Helper()
	wrapped := make([]byte, 0, len(body)+40)
	wrapped = append(wrapped, "<table><tbody>"...)
	wrapped = append(wrapped, body...)
	wrapped = append(wrapped, "</tbody></table>"...)
	return ParseHTML(t, wrapped)
}

// ParseHTML loads body into a goquery document.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func (c *Client) cookie(path, name string) string {
	u, err := url.Parse(c.base + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) do(method, path string, body io.Reader, header http.Header) *http.Response {
	c.t.Helper()

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
