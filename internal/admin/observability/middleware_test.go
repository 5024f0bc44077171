package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerLogsCompletion(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var fromCtx *zap.Logger
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/stores", nil))

	require.Equal(t, http.StatusTeapot, rr.Code)
	require.NotNil(t, fromCtx)
	require.NotSame(t, NoopLogger(), fromCtx)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zap.WarnLevel, entries[0].Level)
	require.EqualValues(t, http.StatusTeapot, entries[0].ContextMap()["status"])
	require.Equal(t, "/admin/stores", entries[0].ContextMap()["path"])
}

func TestRecovererAnswers500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	handler := RequestLogger(zap.New(core))(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	t.Parallel()

	require.Same(t, NoopLogger(), FromContext(nil))
	require.Same(t, NoopLogger(), FromContext(WithLogger(nil, nil)))
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.InfoLevel))
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
}
