package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sysclipboard "github.com/atotto/clipboard"
)

// ErrUnsupported indicates the host has no clipboard utility available.
var ErrUnsupported = errors.New("clipboard: unsupported on this host")

// Writer receives exported text.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Error reports a failed clipboard write. It never affects loaded data.
type Error struct {
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("clipboard: write failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// System writes to the operating system clipboard.
type System struct{}

// WriteText copies text to the OS clipboard.
func (System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Err: err}
	}
	if sysclipboard.Unsupported {
		return &Error{Err: ErrUnsupported}
	}
	if err := sysclipboard.WriteAll(text); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// Recorder keeps written texts in memory. Err, when set, is returned from every write.
type Recorder struct {
	mu    sync.Mutex
	texts []string
	Err   error
}

// WriteText records text or fails with the configured error.
func (r *Recorder) WriteText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return &Error{Err: r.Err}
	}
	r.texts = append(r.texts, text)
	return nil
}

// Last returns the most recent text written.
func (r *Recorder) Last() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return "", false
	}
	return r.texts[len(r.texts)-1], true
}

// Count returns the number of successful writes.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}
