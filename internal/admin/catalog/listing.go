package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/clipboard"
)

// Loader fetches the eligible records of a store. *Fetcher implements it.
type Loader interface {
	FetchEligible(ctx context.Context, token, storeID string) ([]StockRecord, error)
}

// Snapshot is the result of one successful load.
type Snapshot struct {
	LoadID    string
	StoreID   string
	StoreName string
	Records   []StockRecord
	Grouping  Grouping
	Text      string
	LoadedAt  time.Time
}

// State is what the presentation layer renders: the last snapshot or the last error.
type State struct {
	Snapshot *Snapshot
	Err      error
	Loading  bool
}

// ListingDeps bundles the collaborators of a Listing.
type ListingDeps struct {
	Loader           Loader
	Logger           *zap.Logger
	DefaultStoreName string
	Clock            func() time.Time
	IDGenerator      func() string
}

// Listing runs the fetch → aggregate → render pipeline for one view. At most
// one load is active: a new Refresh cancels the previous one, and results of
// an older generation are discarded on arrival.
type Listing struct {
	loader    Loader
	logger    *zap.Logger
	storeName string
	clock     func() time.Time
	newID     func() string

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	snapshot   *Snapshot
	err        error
}

// NewListing wires a Listing.
func NewListing(deps ListingDeps) *Listing {
	if deps.Loader == nil {
		panic("catalog: loader is required")
	}
	l := &Listing{
		loader:    deps.Loader,
		logger:    deps.Logger,
		storeName: strings.TrimSpace(deps.DefaultStoreName),
		clock:     deps.Clock,
		newID:     deps.IDGenerator,
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.storeName == "" {
		l.storeName = DefaultStoreName
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.newID == nil {
		l.newID = func() string { return ulid.Make().String() }
	}
	return l
}

// State returns the current view state.
func (l *Listing) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{Snapshot: l.snapshot, Err: l.err, Loading: l.cancel != nil}
}

// Refresh re-runs the whole pipeline for storeID. On failure the previous
// result is cleared and the error is kept as the view's single error.
func (l *Listing) Refresh(ctx context.Context, token, storeID, storeName string) (Snapshot, error) {
	loadID := l.newID()
	logger := l.logger.With(zap.String("load_id", loadID), zap.String("store_id", storeID))

	l.mu.Lock()
	l.generation++
	gen := l.generation
	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	records, err := l.loader.FetchEligible(loadCtx, token, storeID)

	var snap Snapshot
	if err == nil {
		name := strings.TrimSpace(storeName)
		if name == "" {
			name = l.storeName
		}
		grouping := Aggregate(records)
		snap = Snapshot{
			LoadID:    loadID,
			StoreID:   strings.TrimSpace(storeID),
			StoreName: name,
			Records:   records,
			Grouping:  grouping,
			Text:      Render(grouping, name),
			LoadedAt:  l.clock(),
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		logger.Info("catalog load discarded", zap.Uint64("generation", gen), zap.Uint64("current", l.generation))
		return Snapshot{}, ErrSuperseded
	}
	l.cancel = nil

	if err != nil {
		l.snapshot = nil
		l.err = err
		if errors.Is(err, ErrInvalidStore) {
			logger.Info("catalog load skipped", zap.Error(err))
		} else {
			logger.Warn("catalog load failed", zap.Error(err))
		}
		return Snapshot{}, err
	}

	l.snapshot = &snap
	l.err = nil
	logger.Info("catalog loaded",
		zap.Int("records", len(snap.Records)),
		zap.Int("brands", len(snap.Grouping.Brands)),
		zap.Int("variants", snap.Grouping.VariantCount()),
	)
	return snap, nil
}

// Text returns the rendered text of the last successful load.
func (l *Listing) Text() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snapshot == nil {
		return "", false
	}
	return l.snapshot.Text, true
}

// CopyToClipboard writes the rendered text to w. Failures are returned as
// *clipboard.Error and leave the loaded state untouched.
func (l *Listing) CopyToClipboard(ctx context.Context, w clipboard.Writer) error {
	text, ok := l.Text()
	if !ok {
		return ErrNothingLoaded
	}
	if err := w.WriteText(ctx, text); err != nil {
		var clipErr *clipboard.Error
		if !errors.As(err, &clipErr) {
			err = &clipboard.Error{Err: err}
		}
		l.logger.Warn("product list copy failed", zap.Error(err))
		return err
	}
	return nil
}
