package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type requestInfoKey struct{}

const defaultEnvironment = "Development"

// RequestInfo is the per-request metadata templates read: where the admin is
// mounted, which page is open and which deployment serves it.
type RequestInfo struct {
	Path        string
	BasePath    string
	Environment string
	RequestID   string
}

// RequestInfoMiddleware stores a RequestInfo in the context. It expects chi's
// RequestID middleware earlier in the chain.
func RequestInfoMiddleware(basePath, environment string) func(http.Handler) http.Handler {
	base := NormaliseBasePath(basePath)
	env := strings.TrimSpace(environment)
	if env == "" {
		env = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := RequestInfo{
				Path:        r.URL.Path,
				BasePath:    base,
				Environment: env,
				RequestID:   chimw.GetReqID(r.Context()),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))
		})
	}
}

// RequestInfoFromContext returns what RequestInfoMiddleware stored.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// RequestPathFromContext returns the request path, or "" outside the middleware.
func RequestPathFromContext(ctx context.Context) string {
	info, _ := RequestInfoFromContext(ctx)
	return info.Path
}

// BasePathFromContext returns the admin mount point, or "/" outside the middleware.
func BasePathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok && info.BasePath != "" {
		return info.BasePath
	}
	return "/"
}

// EnvironmentFromContext returns the deployment label, "Development" by default.
func EnvironmentFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok && info.Environment != "" {
		return info.Environment
	}
	return defaultEnvironment
}

// NormaliseBasePath turns a configured mount point into a clean absolute path
// without a trailing slash.
func NormaliseBasePath(base string) string {
	return path.Clean("/" + strings.TrimSpace(base))
}
