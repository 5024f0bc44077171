package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"finitefield.org/store-admin/internal/admin/backend"
)

// PageSource lists one page of a store's product stock records.
type PageSource interface {
	ListStoreProducts(ctx context.Context, token string, storeID int64, req PageRequest) (Page, error)
}

// maxPageBody caps how much of one page response is buffered.
const maxPageBody = 8 << 20

// HTTPSource reads store products from the backend REST API.
type HTTPSource struct {
	client  *backend.Client
	maxBody int64
}

// NewHTTPSource constructs a PageSource backed by the REST client.
func NewHTTPSource(client *backend.Client) *HTTPSource {
	if client == nil {
		panic("catalog: backend client is required")
	}
	return &HTTPSource{client: client, maxBody: maxPageBody}
}

// ListStoreProducts calls GET stores/{storeID}/products?page=&perPage=.
func (s *HTTPSource) ListStoreProducts(ctx context.Context, token string, storeID int64, req PageRequest) (Page, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = PerPage
	}

	resp, err := s.client.Do(ctx, backend.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("stores/%d/products", storeID),
		Query: url.Values{
			"page":    {strconv.Itoa(req.Page)},
			"perPage": {strconv.Itoa(req.PerPage)},
		},
		Token: token,
	})
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return Page{}, fmt.Errorf("catalog: read response: %w", err)
	}
	if int64(len(body)) > s.maxBody {
		return Page{}, fmt.Errorf("%w: page %d exceeds %d bytes", ErrUnexpectedResponse, req.Page, s.maxBody)
	}
	return DecodePage(body, req.Page)
}
