package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "store_admin_session"
	defaultCookiePath  = "/"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

var (
	// ErrExpired is returned by Load for a session past its idle or absolute limit.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig is returned by NewManager for unusable keys.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Config configures the session cookie.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

func (c Config) validate() error {
	if len(c.HashKey) == 0 {
		return fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(c.BlockKey) {
	case 0, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = defaultCookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = defaultCookiePath
	}
	if c.Lifetime <= 0 {
		c.Lifetime = defaultLifetime
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.CookieSameSite == 0 || c.CookieSameSite == http.SameSiteDefaultMode {
		c.CookieSameSite = http.SameSiteLaxMode
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Manager keeps sessions in signed, optionally encrypted cookies via
// gorilla/securecookie. Nothing is stored server side.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager validates the keys and applies cookie defaults.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))
	return &Manager{cfg: cfg, codec: codec}, nil
}

// Load decodes the request's session. A missing or undecodable cookie yields
// a fresh session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}
	if data.expired(m.cfg.Now().UTC(), m.cfg.IdleTimeout) {
		return nil, ErrExpired
	}
	return &Session{data: data}, nil
}

// New starts an empty session.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{
		data: Data{
			ID:         newSessionID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
	}
}

// Save writes sess to the response, or clears the cookie once it was destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.cfg.Now()
	sess.Touch(now)
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := m.cookie(encoded)
	if expiry := sess.data.ExpiresAt; !expiry.IsZero() {
		cookie.Expires = expiry.UTC()
		cookie.MaxAge = -1
		if remaining := expiry.Sub(now); remaining > 0 {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		}
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy expires the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	cookie := m.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}
