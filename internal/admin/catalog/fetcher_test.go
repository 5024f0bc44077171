package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/store-admin/internal/admin/backend"
)

type sourceFunc func(ctx context.Context, token string, storeID int64, req PageRequest) (Page, error)

func (f sourceFunc) ListStoreProducts(ctx context.Context, token string, storeID int64, req PageRequest) (Page, error) {
	return f(ctx, token, storeID, req)
}

func intPtr(v int) *int { return &v }

func record(brand, name, flavor, price string, stock int64, active bool) StockRecord {
	return StockRecord{
		StoreID:       12,
		Product:       &Product{Brand: brand, Name: name, Flavor: flavor},
		Active:        active,
		StockQuantity: stock,
		SalePrice:     price,
	}
}

func TestFetchEligibleWalksPagesAndFilters(t *testing.T) {
	t.Parallel()

	var requests []PageRequest
	source := sourceFunc(func(_ context.Context, token string, storeID int64, req PageRequest) (Page, error) {
		require.Equal(t, "tok", token)
		require.Equal(t, int64(12), storeID)
		requests = append(requests, req)
		switch req.Page {
		case 1:
			return Page{
				Items: []StockRecord{
					record("X", "A", "Mint", "10.00", 5, true),
					record("X", "A", "Grape", "10.00", 0, true),
				},
				Meta: &PageMeta{CurrentPage: intPtr(1), LastPage: intPtr(2)},
			}, nil
		case 2:
			return Page{
				Items: []StockRecord{
					record("X", "B", "Lime", "12.00", 2, false),
					{StoreID: 12, Active: true, StockQuantity: 4},
					record("Y", "C", "Ice", "8", 1, true),
				},
				Meta: &PageMeta{CurrentPage: intPtr(2), LastPage: intPtr(2)},
			}, nil
		}
		t.Fatalf("unexpected page %d", req.Page)
		return Page{}, nil
	})

	records, err := NewFetcher(source).FetchEligible(context.Background(), "tok", " 12 ")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Mint", records[0].Product.Flavor)
	require.Equal(t, "Ice", records[1].Product.Flavor)
	require.Equal(t, []PageRequest{{Page: 1, PerPage: 100}, {Page: 2, PerPage: 100}}, requests)
}

func TestFetchEligibleRejectsInvalidStore(t *testing.T) {
	t.Parallel()

	called := false
	fetcher := NewFetcher(sourceFunc(func(context.Context, string, int64, PageRequest) (Page, error) {
		called = true
		return Page{}, nil
	}))

	for _, id := range []string{"", "   ", "abc", "0", "-4", "1.5"} {
		_, err := fetcher.FetchEligible(context.Background(), "", id)
		require.ErrorIs(t, err, ErrInvalidStore, "store id %q", id)
	}
	require.False(t, called)
}

func TestFetchEligibleStopsWhenMetaMissing(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	calls := 0
	fetcher := NewFetcher(sourceFunc(func(context.Context, string, int64, PageRequest) (Page, error) {
		calls++
		return Page{Items: []StockRecord{record("X", "A", "Mint", "1", 1, true)}}, nil
	}), WithLogger(zap.New(core)))

	records, err := fetcher.FetchEligible(context.Background(), "", "3")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, logs.FilterMessageSnippet("metadata missing").Len())
}

func TestFetchEligibleAbortsOnMalformedPage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var pages []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()
		assert.Equal(t, "/stores/7/products", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("perPage"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			_, _ = fmt.Fprint(w, `{"data":[{"storeId":7,"product":{"brand":"X","name":"A","flavor":"Mint"},"isActive":true,"stockQuantity":3,"salePrice":"10.00"}],"meta":{"currentPage":1,"lastPage":3}}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"items":[]}`)
	}))
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	records, err := NewFetcher(NewHTTPSource(client)).FetchEligible(context.Background(), "tok", "7")
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	require.Nil(t, records)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"1", "2"}, pages, "no pages requested after the malformed one")
}

func TestFetchEligibleWrapsTransportErrors(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = NewFetcher(NewHTTPSource(client)).FetchEligible(context.Background(), "", "7")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 1, transportErr.Page)

	var apiErr *backend.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Contains(t, UserMessage(err), "upstream down")
}

func TestFetchEligibleEnforcesPageLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	fetcher := NewFetcher(sourceFunc(func(_ context.Context, _ string, _ int64, req PageRequest) (Page, error) {
		calls++
		return Page{Meta: &PageMeta{CurrentPage: intPtr(1), LastPage: intPtr(2)}}, nil
	}), WithMaxPages(3))

	_, err := fetcher.FetchEligible(context.Background(), "", "1")
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	require.Equal(t, 3, calls)
}

func TestFetchEligibleStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := NewFetcher(sourceFunc(func(context.Context, string, int64, PageRequest) (Page, error) {
		cancel()
		return Page{Meta: &PageMeta{CurrentPage: intPtr(1), LastPage: intPtr(5)}}, nil
	}))

	_, err := fetcher.FetchEligible(ctx, "", "1")
	require.True(t, errors.Is(err, context.Canceled))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 2, transportErr.Page)
}
