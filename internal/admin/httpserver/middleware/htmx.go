package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const htmxContextKey contextKey = "htmx.info"

// ToastEvent is the client event admin.js listens for to show a notification.
const ToastEvent = "admin:toast"

// HTMXInfo describes how htmx issued the request.
type HTMXInfo struct {
	Request        bool
	Boosted        bool
	HistoryRestore bool
	Target         string
}

// WantsFragment reports whether the response should be the swapped fragment
// rather than the whole page. Boosted navigation and history restores expect
// a full document.
func (i HTMXInfo) WantsFragment() bool {
	return i.Request && !i.Boosted && !i.HistoryRestore
}

// HTMX reads the HX-* request headers into the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				Request:        headerTrue(r, "HX-Request"),
				Boosted:        headerTrue(r, "HX-Boosted"),
				HistoryRestore: headerTrue(r, "HX-History-Restore-Request"),
				Target:         r.Header.Get("HX-Target"),
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey, info)))
		})
	}
}

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(r.Header.Get(name), "true")
}

// HTMXInfoFromContext returns the htmx metadata, or the zero value outside the middleware.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxContextKey).(HTMXInfo)
	return info
}

// IsHTMXRequest reports whether htmx issued the request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).Request
}

// Toast sets the HX-Trigger header so the page shows a transient
// notification. Tone is one of info, success, warning or danger.
func Toast(w http.ResponseWriter, message, tone string) {
	if tone == "" {
		tone = "info"
	}
	payload, err := json.Marshal(map[string]map[string]string{
		ToastEvent: {"message": message, "tone": tone},
	})
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(payload))
}

// NoStore keeps browsers and proxies from caching admin responses, which carry
// stock levels and prices.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store, max-age=0")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
