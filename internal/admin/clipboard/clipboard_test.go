package clipboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsLastText(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	require.NoError(t, rec.WriteText(context.Background(), "first"))
	require.NoError(t, rec.WriteText(context.Background(), "second"))

	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, "second", last)
	require.Equal(t, 2, rec.Count())
}

func TestRecorderWrapsFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("denied")
	rec := &Recorder{Err: cause}
	err := rec.WriteText(context.Background(), "text")

	var clipErr *Error
	require.ErrorAs(t, err, &clipErr)
	require.ErrorIs(t, err, cause)
	require.Zero(t, rec.Count())
}

func TestSystemHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := System{}.WriteText(ctx, "text")
	var clipErr *Error
	require.ErrorAs(t, err, &clipErr)
	require.ErrorIs(t, err, context.Canceled)
}
