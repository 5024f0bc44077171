package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/observability"
	appsession "finitefield.org/store-admin/internal/admin/session"
	"finitefield.org/store-admin/internal/admin/templates/auth"
)

const (
	msgSessionExpired = "Sua sessão expirou. Entre novamente."
	msgAuthFailed     = "Falha na autenticação. Confira os dados informados."
)

// loginNotices maps the status and reason query values set by logout and the
// auth middleware to the banner shown above the form.
var loginNotices = map[string]string{
	"logged_out":                "Você saiu do painel.",
	custommw.ReasonTokenExpired: msgSessionExpired,
	custommw.ReasonMissingToken: "É preciso entrar para continuar.",
	custommw.ReasonTokenInvalid: "Credenciais inválidas. Tente novamente.",
}

// loginHandlers serves the sign-in form and exchanges a Firebase ID token for
// the token cookie read by the auth middleware.
type loginHandlers struct {
	authenticator custommw.Authenticator
	base          string
	loginPath     string
	// onLogout runs with the UID of the staff member signing out.
	onLogout func(uid string)
}

func newLoginHandlers(authenticator custommw.Authenticator, base, loginPath string) *loginHandlers {
	if authenticator == nil {
		panic("httpserver: authenticator is required")
	}
	return &loginHandlers{authenticator: authenticator, base: base, loginPath: loginPath}
}

// loginForm is the submitted sign-in form.
type loginForm struct {
	Email    string
	Token    string
	Next     string
	Remember bool
}

func parseLoginForm(r *http.Request) (loginForm, error) {
	if err := r.ParseForm(); err != nil {
		return loginForm{}, err
	}
	return loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Token:    strings.TrimSpace(r.PostFormValue("id_token")),
		Next:     r.PostFormValue("next"),
		Remember: parseCheckbox(r.PostFormValue("remember")),
	}, nil
}

// Show renders the login form. Signed-in staff go straight to their target
// unless ?force is set.
func (h *loginHandlers) Show(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if signedIn(r) && !parseCheckbox(query.Get("force")) {
		http.Redirect(w, r, h.target(query.Get("next")), http.StatusFound)
		return
	}

	data := h.pageData(r, loginForm{
		Email: strings.TrimSpace(query.Get("email")),
		Next:  query.Get("next"),
	})
	data.Notice = loginNotices[firstNonEmpty(query.Get("status"), query.Get("reason"))]
	h.render(w, r, data, http.StatusOK)
}

// Submit verifies the token, records the staff member on the session and
// sets the token cookie.
func (h *loginHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	form, err := parseLoginForm(r)
	if err != nil {
		data := h.pageData(r, form)
		data.Error = "Não foi possível enviar o formulário. Tente novamente."
		h.render(w, r, data, http.StatusBadRequest)
		return
	}
	if form.Token == "" {
		data := h.pageData(r, form)
		data.Error = "Informe o token de acesso."
		h.render(w, r, data, http.StatusBadRequest)
		return
	}

	user, err := h.authenticator.Authenticate(r, form.Token)
	if err != nil || user == nil {
		logger.Warn("staff login rejected", zap.Error(err))
		data := h.pageData(r, form)
		data.Error = loginFailureMessage(err)
		h.render(w, r, data, http.StatusUnauthorized)
		return
	}
	if user.Email == "" {
		user.Email = form.Email
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		// A different staff member must not inherit the previous store selection.
		if previous := sess.User(); previous != nil && previous.UID != user.UID {
			sess.ClearStore()
		}
		sess.Rotate()
		sess.SetUser(&appsession.User{
			UID:   user.UID,
			Email: user.Email,
			Roles: append([]string(nil), user.Roles...),
		})
	}
	logger.Info("staff login", zap.String("staff_uid", user.UID), zap.Strings("roles", user.Roles))

	h.issueTokenCookie(w, r, firstNonEmpty(user.Token, form.Token), form.Remember)
	h.redirect(w, r, h.target(form.Next))
}

// Logout drops the session, the token cookie and the staff member's listings.
func (h *loginHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := custommw.UserFromContext(r.Context()); ok && h.onLogout != nil {
		h.onLogout(user.UID)
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		sess.Destroy()
	}
	h.expireTokenCookie(w)
	h.redirect(w, r, h.loginPath+"?status=logged_out")
}

func (h *loginHandlers) pageData(r *http.Request, form loginForm) auth.LoginPageData {
	data := auth.LoginPageData{
		Action:    h.loginPath,
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
		Next:      safeNext(h.base, h.loginPath, form.Next),
		Email:     form.Email,
		Remember:  form.Remember,
	}
	if info, ok := custommw.RequestInfoFromContext(r.Context()); ok {
		data.Environment = info.Environment
	}
	return data
}

func (h *loginHandlers) render(w http.ResponseWriter, r *http.Request, data auth.LoginPageData, status int) {
	templ.Handler(auth.LoginPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *loginHandlers) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *loginHandlers) target(next string) string {
	if safe := safeNext(h.base, h.loginPath, next); safe != "" {
		return safe
	}
	return h.base
}

func (h *loginHandlers) issueTokenCookie(w http.ResponseWriter, r *http.Request, token string, remember bool) {
	if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = "Bearer " + token
	}
	cookie := &http.Cookie{
		Name:     custommw.TokenCookieName,
		Value:    token,
		Path:     h.base,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	// Without remember the cookie lives for the browser session only.
	if sess, ok := custommw.SessionFromContext(r.Context()); remember && ok && sess != nil {
		if expiry := sess.ExpiresAt(); !expiry.IsZero() {
			cookie.Expires = expiry.UTC()
			if remaining := time.Until(expiry); remaining > 0 {
				cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
			}
		}
	}
	http.SetCookie(w, cookie)
}

func (h *loginHandlers) expireTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     custommw.TokenCookieName,
		Path:     h.base,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func signedIn(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok || sess == nil {
		return false
	}
	user := sess.User()
	return user != nil && strings.TrimSpace(user.UID) != ""
}

func loginFailureMessage(err error) string {
	var authErr *custommw.AuthError
	switch {
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonTokenExpired:
		return msgSessionExpired
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonMissingToken:
		return "Credenciais ausentes. Confira e tente novamente."
	case errors.As(err, &authErr), errors.Is(err, custommw.ErrUnauthorized):
		return msgAuthFailed
	default:
		return "Não foi possível entrar. Tente novamente em instantes."
	}
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// safeNext returns raw when it is a local path below base other than the
// login page, and "" otherwise.
func safeNext(base, loginPath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	unescaped, err := url.PathUnescape(parsed.Path)
	if err != nil || strings.Contains(unescaped, `\`) || strings.HasPrefix(unescaped, "//") {
		return ""
	}

	cleaned := path.Clean("/" + unescaped)
	if base != "/" && cleaned != base && !strings.HasPrefix(cleaned, base+"/") {
		return ""
	}
	if cleaned == path.Clean(loginPath) {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		target += "#" + parsed.Fragment
	}
	return target
}
