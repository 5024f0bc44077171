package session

import (
	"encoding/base64"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
)

// User is the staff profile remembered between requests.
type User struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (u *User) equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.UID == other.UID && u.Email == other.Email && slices.Equal(u.Roles, other.Roles)
}

// StoreSelection is the store the staff member is currently working on.
type StoreSelection struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Data is the cookie payload.
type Data struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastActive time.Time       `json:"lastActive"`
	ExpiresAt  time.Time       `json:"expiresAt,omitempty"`
	CSRFToken  string          `json:"csrfToken,omitempty"`
	User       *User           `json:"user,omitempty"`
	Store      *StoreSelection `json:"store,omitempty"`
}

// expired reports whether the payload outlived its absolute expiry or sat
// idle for longer than idle.
func (d Data) expired(now time.Time, idle time.Duration) bool {
	if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt) {
		return true
	}
	last := d.LastActive
	if last.IsZero() {
		last = d.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > idle
}

// Session is the per-request view of the cookie payload. Handlers mutate it
// and the middleware writes it back before the response goes out.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
}

func newSessionID() string {
	return ulid.Make().String()
}

func (s *Session) ID() string           { return s.data.ID }
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }
func (s *Session) CSRFToken() string    { return s.data.CSRFToken }
func (s *Session) User() *User          { return s.data.User }
func (s *Session) Dirty() bool          { return s.dirty }
func (s *Session) Destroyed() bool      { return s.destroyed }

// EnsureCSRFToken returns the session's CSRF token, minting one the first time.
func (s *Session) EnsureCSRFToken() (string, error) {
	if s.data.CSRFToken != "" {
		return s.data.CSRFToken, nil
	}
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("session: csrf token entropy unavailable")
	}
	s.data.CSRFToken = base64.RawURLEncoding.EncodeToString(key)
	s.dirty = true
	return s.data.CSRFToken, nil
}

// SetUser records the signed-in staff member. nil signs out.
func (s *Session) SetUser(user *User) {
	if s.data.User.equal(user) {
		return
	}
	if user != nil {
		copied := *user
		copied.Roles = slices.Clone(user.Roles)
		user = &copied
	}
	s.data.User = user
	s.dirty = true
}

// Rotate gives the session a fresh identifier and CSRF token while keeping
// its contents. Login calls it so a pre-auth cookie cannot be reused.
func (s *Session) Rotate() {
	s.data.ID = newSessionID()
	s.data.CSRFToken = ""
	s.dirty = true
}

// Store returns the selected store, if any.
func (s *Session) Store() (StoreSelection, bool) {
	if s.data.Store == nil || s.data.Store.ID == "" {
		return StoreSelection{}, false
	}
	return *s.data.Store, true
}

// SelectStore remembers the store used by the product list. A blank id clears it.
func (s *Session) SelectStore(id, name string) {
	sel := StoreSelection{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
	switch {
	case sel.ID == "":
		s.ClearStore()
	case s.data.Store == nil || *s.data.Store != sel:
		s.data.Store = &sel
		s.dirty = true
	}
}

// ClearStore forgets the selected store.
func (s *Session) ClearStore() {
	if s.data.Store != nil {
		s.data.Store = nil
		s.dirty = true
	}
}

// Destroy drops the session when the response is written.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Touch moves the idle window forward.
func (s *Session) Touch(now time.Time) {
	if now = now.UTC(); now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}
