package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultHTTPAddr         = ":8080"
	defaultBasePath         = "/admin"
	defaultEnvironment      = "Development"
	defaultBackendTimeout   = 15 * time.Second
	defaultCatalogPageLimit = 1000
	defaultStoreName        = "nossa loja"
	defaultLogLevel         = "info"
	defaultShutdownTimeout  = 10 * time.Second
)

// Config captures runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Catalog  CatalogConfig
	Session  SessionConfig
	Firebase FirebaseConfig
	Exports  ExportsConfig
	LogLevel string
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Address         string
	BasePath        string
	Environment     string
	CSRFSecure      bool
	ShutdownTimeout time.Duration
}

// BackendConfig points at the store/catalog REST API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig tunes the product list pipeline.
type CatalogConfig struct {
	PageLimit        int
	DefaultStoreName string
}

// SessionConfig holds cookie codec keys. Keys are base64 encoded in the environment.
type SessionConfig struct {
	HashKey  []byte
	BlockKey []byte
}

// FirebaseConfig stores the Firebase project used for staff authentication.
type FirebaseConfig struct {
	ProjectID string
}

// ExportsConfig names the bucket receiving archived product lists.
type ExportsConfig struct {
	Bucket string
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence
// over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles configuration from defaults, .env overrides, the process
// environment and explicit maps (in increasing precedence).
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string

	decodeKey := func(field, key string) []byte {
		raw := strings.TrimSpace(stringWithDefault(lookup, key, ""))
		if raw == "" {
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			invalid = append(invalid, field)
			return nil
		}
		return decoded
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultHTTPAddr),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			Environment:     stringWithDefault(lookup, "ADMIN_ENVIRONMENT", defaultEnvironment),
			CSRFSecure:      boolWithDefault(lookup, "ADMIN_CSRF_COOKIE_SECURE", false),
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimSpace(stringWithDefault(lookup, "ADMIN_BACKEND_URL", "")),
			Timeout: durationWithDefault(lookup, "ADMIN_BACKEND_TIMEOUT", defaultBackendTimeout),
		},
		Catalog: CatalogConfig{
			PageLimit:        intWithDefault(lookup, "ADMIN_CATALOG_PAGE_LIMIT", defaultCatalogPageLimit),
			DefaultStoreName: stringWithDefault(lookup, "ADMIN_DEFAULT_STORE_NAME", defaultStoreName),
		},
		Session: SessionConfig{
			HashKey:  decodeKey("Session.HashKey", "ADMIN_SESSION_HASH_KEY"),
			BlockKey: decodeKey("Session.BlockKey", "ADMIN_SESSION_BLOCK_KEY"),
		},
		Firebase: FirebaseConfig{
			ProjectID: strings.TrimSpace(stringWithDefault(lookup, "FIREBASE_PROJECT_ID", "")),
		},
		Exports: ExportsConfig{
			Bucket: strings.TrimSpace(stringWithDefault(lookup, "ADMIN_EXPORTS_BUCKET", "")),
		},
		LogLevel: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	invalid = append(invalid, validateConfig(cfg)...)
	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}

// StaticMode reports whether no backend is configured and in-memory services should be used.
func (c Config) StaticMode() bool {
	return c.Backend.BaseURL == ""
}

func validateConfig(cfg Config) []string {
	var invalid []string
	if strings.TrimSpace(cfg.Server.Address) == "" {
		invalid = append(invalid, "Server.Address")
	}
	if cfg.Backend.BaseURL != "" {
		parsed, err := url.Parse(cfg.Backend.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			invalid = append(invalid, "Backend.BaseURL")
		}
	}
	if cfg.Backend.Timeout <= 0 {
		invalid = append(invalid, "Backend.Timeout")
	}
	if cfg.Catalog.PageLimit <= 0 {
		invalid = append(invalid, "Catalog.PageLimit")
	}
	if n := len(cfg.Session.HashKey); n > 0 && n < 32 {
		invalid = append(invalid, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		invalid = append(invalid, "Session.BlockKey")
	}
	return invalid
}

// loadDotEnv reads KEY=value pairs without touching the process environment.
// A missing file is not an error.
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
