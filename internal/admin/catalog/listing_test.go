package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/backend"
	"finitefield.org/store-admin/internal/admin/clipboard"
)

type loaderFunc func(ctx context.Context, token, storeID string) ([]StockRecord, error)

func (f loaderFunc) FetchEligible(ctx context.Context, token, storeID string) ([]StockRecord, error) {
	return f(ctx, token, storeID)
}

func fixedDeps(loader Loader) ListingDeps {
	var n atomic.Int64
	return ListingDeps{
		Loader: loader,
		Clock:  func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			return fmt.Sprintf("load-%d", n.Add(1))
		},
	}
}

func TestListingRefreshBuildsSnapshot(t *testing.T) {
	t.Parallel()

	listing := NewListing(fixedDeps(loaderFunc(func(_ context.Context, token, storeID string) ([]StockRecord, error) {
		require.Equal(t, "tok", token)
		require.Equal(t, "12", storeID)
		return []StockRecord{record("X", "A", "Mint", "10.00", 1, true)}, nil
	})))

	snap, err := listing.Refresh(context.Background(), "tok", "12", "")
	require.NoError(t, err)
	require.Equal(t, "load-1", snap.LoadID)
	require.Equal(t, DefaultStoreName, snap.StoreName)
	require.Contains(t, snap.Text, "Frete grátis para nossa loja!")
	require.Contains(t, snap.Text, "🔴 *A - R$10,00*\n- Mint\n")

	state := listing.State()
	require.NoError(t, state.Err)
	require.False(t, state.Loading)
	require.NotNil(t, state.Snapshot)
	require.Equal(t, snap.Text, state.Snapshot.Text)
}

func TestListingUsesConfiguredDefaultStoreName(t *testing.T) {
	t.Parallel()

	deps := fixedDeps(loaderFunc(func(context.Context, string, string) ([]StockRecord, error) {
		return nil, nil
	}))
	deps.DefaultStoreName = "Loja Matriz"
	listing := NewListing(deps)

	snap, err := listing.Refresh(context.Background(), "", "1", "  ")
	require.NoError(t, err)
	require.Equal(t, "Loja Matriz", snap.StoreName)
	require.True(t, snap.Grouping.Empty())
}

func TestListingErrorClearsPreviousResult(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = fmt.Fprint(w, `{"data":[{"product":{"brand":"X","name":"A","flavor":"Mint"},"isActive":true,"stockQuantity":1,"salePrice":"10.00"}],"meta":{"currentPage":1,"lastPage":1}}`)
			return
		}
		_, _ = fmt.Fprint(w, `"oops"`)
	}))
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)
	listing := NewListing(fixedDeps(NewFetcher(NewHTTPSource(client))))

	_, err = listing.Refresh(context.Background(), "", "4", "Loja")
	require.NoError(t, err)
	_, ok := listing.Text()
	require.True(t, ok)

	_, err = listing.Refresh(context.Background(), "", "4", "Loja")
	require.ErrorIs(t, err, ErrUnexpectedResponse)

	state := listing.State()
	require.Nil(t, state.Snapshot)
	require.ErrorIs(t, state.Err, ErrUnexpectedResponse)
	_, ok = listing.Text()
	require.False(t, ok)

	require.ErrorIs(t, listing.CopyToClipboard(context.Background(), &clipboard.Recorder{}), ErrNothingLoaded)
}

func TestListingInvalidStoreSetsError(t *testing.T) {
	t.Parallel()

	listing := NewListing(fixedDeps(NewFetcher(sourceFunc(func(context.Context, string, int64, PageRequest) (Page, error) {
		t.Fatal("no request expected")
		return Page{}, nil
	}))))

	_, err := listing.Refresh(context.Background(), "", "", "")
	require.ErrorIs(t, err, ErrInvalidStore)
	require.ErrorIs(t, listing.State().Err, ErrInvalidStore)
	require.Equal(t, "Nenhuma loja selecionada. Selecione uma loja para gerar a lista.", UserMessage(listing.State().Err))
}

func TestListingNewerRefreshSupersedesOlder(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	listing := NewListing(fixedDeps(loaderFunc(func(ctx context.Context, _ string, storeID string) ([]StockRecord, error) {
		if storeID == "1" {
			close(started)
			<-ctx.Done()
			return nil, &TransportError{StoreID: 1, Page: 1, Err: ctx.Err()}
		}
		return []StockRecord{record("Fresh", "B", "Lime", "2", 1, true)}, nil
	})))

	oldResult := make(chan error, 1)
	go func() {
		_, err := listing.Refresh(context.Background(), "", "1", "Velha")
		oldResult <- err
	}()

	<-started
	require.True(t, listing.State().Loading)

	snap, err := listing.Refresh(context.Background(), "", "2", "Nova")
	require.NoError(t, err)
	require.Equal(t, "2", snap.StoreID)

	select {
	case err := <-oldResult:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded load did not return")
	}

	state := listing.State()
	require.NoError(t, state.Err)
	require.False(t, state.Loading)
	require.Equal(t, "Nova", state.Snapshot.StoreName)
	_, ok := state.Snapshot.Grouping.Brand("Fresh")
	require.True(t, ok)
}

func TestListingCopyToClipboard(t *testing.T) {
	t.Parallel()

	listing := NewListing(fixedDeps(loaderFunc(func(context.Context, string, string) ([]StockRecord, error) {
		return []StockRecord{record("X", "A", "Mint", "1", 1, true)}, nil
	})))

	require.ErrorIs(t, listing.CopyToClipboard(context.Background(), &clipboard.Recorder{}), ErrNothingLoaded)

	snap, err := listing.Refresh(context.Background(), "", "9", "Loja")
	require.NoError(t, err)

	recorder := &clipboard.Recorder{}
	require.NoError(t, listing.CopyToClipboard(context.Background(), recorder))
	text, ok := recorder.Last()
	require.True(t, ok)
	require.Equal(t, snap.Text, text)

	failing := &clipboard.Recorder{Err: errors.New("denied")}
	err = listing.CopyToClipboard(context.Background(), failing)
	var clipErr *clipboard.Error
	require.ErrorAs(t, err, &clipErr)

	state := listing.State()
	require.NoError(t, state.Err)
	require.Equal(t, snap.Text, state.Snapshot.Text)
}

type plainWriter struct{ err error }

func (w plainWriter) WriteText(context.Context, string) error { return w.err }

func TestListingCopyWrapsForeignErrors(t *testing.T) {
	t.Parallel()

	listing := NewListing(fixedDeps(loaderFunc(func(context.Context, string, string) ([]StockRecord, error) {
		return nil, nil
	})))
	_, err := listing.Refresh(context.Background(), "", "9", "")
	require.NoError(t, err)

	err = listing.CopyToClipboard(context.Background(), plainWriter{err: errors.New("no display")})
	var clipErr *clipboard.Error
	require.ErrorAs(t, err, &clipErr)
	require.EqualError(t, clipErr.Err, "no display")
}

func TestRegistryKeepsOneListingPerKey(t *testing.T) {
	t.Parallel()

	created := 0
	registry := NewRegistry(func() *Listing {
		created++
		return NewListing(fixedDeps(loaderFunc(func(context.Context, string, string) ([]StockRecord, error) {
			return nil, nil
		})))
	})

	a := registry.Get("uid-a")
	require.Same(t, a, registry.Get("uid-a"))
	require.NotSame(t, a, registry.Get("uid-b"))
	require.Equal(t, 2, created)

	registry.Forget("uid-a")
	require.NotSame(t, a, registry.Get("uid-a"))
	require.Equal(t, 3, created)
}

func emptyListingFactory() func() *Listing {
	return func() *Listing {
		return NewListing(fixedDeps(loaderFunc(func(context.Context, string, string) ([]StockRecord, error) {
			return nil, nil
		})))
	}
}

func TestRegistryForgetOwnerDropsOnlyThatStaffMember(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(emptyListingFactory())
	a1 := registry.Get(ListingKey("uid-a", "1"))
	registry.Get(ListingKey("uid-a", "2"))
	b1 := registry.Get(ListingKey("uid-ab", "1"))

	require.Equal(t, 2, registry.ForgetOwner("uid-a"))
	require.Equal(t, 1, registry.Len())
	require.Same(t, b1, registry.Get(ListingKey("uid-ab", "1")))
	require.NotSame(t, a1, registry.Get(ListingKey("uid-a", "1")))
	require.Zero(t, registry.ForgetOwner(""))
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(emptyListingFactory())
	registry.limit = 2

	a := registry.Get("a")
	b := registry.Get("b")
	require.Same(t, a, registry.Get("a"))

	registry.Get("c")
	require.Equal(t, 2, registry.Len())
	require.Same(t, a, registry.Get("a"))
	require.NotSame(t, b, registry.Get("b"))
	require.Equal(t, 2, registry.Len())
}
