package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/observability"
	appsession "finitefield.org/store-admin/internal/admin/session"
)

type sessionKey struct{}

// SessionStore loads and persists sessions. *session.Manager implements it.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	New() *appsession.Session
	Save(http.ResponseWriter, *appsession.Session) error
	Destroy(http.ResponseWriter)
}

// Session puts the request's session in the context and writes it back just
// before the first byte of the response.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("middleware: session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			sess := loadSession(store, r, logger)

			cw := &commitWriter{ResponseWriter: w, commit: func(w http.ResponseWriter) {
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(cw, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
			cw.flushSession()
		})
	}
}

func loadSession(store SessionStore, r *http.Request, logger *zap.Logger) *appsession.Session {
	sess, err := store.Load(r)
	switch {
	case errors.Is(err, appsession.ErrExpired):
		logger.Info("session expired; starting a new one")
	case err != nil:
		logger.Warn("session load failed", zap.Error(err))
	case sess != nil:
		return sess
	}
	return store.New()
}

// SessionFromContext returns the session attached by Session.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(sessionKey{}).(*appsession.Session)
	return sess, ok && sess != nil
}

// commitWriter runs commit once, before headers are sent.
type commitWriter struct {
	http.ResponseWriter
	commit    func(http.ResponseWriter)
	committed bool
}

func (w *commitWriter) flushSession() {
	if !w.committed {
		w.committed = true
		w.commit(w.ResponseWriter)
	}
}

func (w *commitWriter) WriteHeader(status int) {
	w.flushSession()
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.flushSession()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
