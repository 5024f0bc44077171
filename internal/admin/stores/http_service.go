package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finitefield.org/store-admin/internal/admin/backend"
	"finitefield.org/store-admin/internal/admin/catalog"
)

// HTTPService implements Service against the store management REST API.
type HTTPService struct {
	client *backend.Client
	source *catalog.HTTPSource
}

// NewHTTPService constructs a Service rooted at baseURL.
func NewHTTPService(baseURL string, client *http.Client) (*HTTPService, error) {
	if client == nil {
		return nil, errors.New("stores: http client is required")
	}
	api, err := backend.NewClient(baseURL, client)
	if err != nil {
		return nil, err
	}
	return &HTTPService{client: api, source: catalog.NewHTTPSource(api)}, nil
}

// PageSource exposes the catalog page source sharing this service's client.
func (s *HTTPService) PageSource() catalog.PageSource {
	return s.source
}

type storeEnvelope struct {
	Data Store `json:"data"`
}

type storeListEnvelope struct {
	Data []Store    `json:"data"`
	Meta Pagination `json:"meta"`
}

// List implements Service.
func (s *HTTPService) List(ctx context.Context, token string, query Query) (ListResult, error) {
	page, perPage := normalizePaging(query.Page, query.PerPage)
	params := url.Values{
		"page":    {strconv.Itoa(page)},
		"perPage": {strconv.Itoa(perPage)},
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		params.Set("search", search)
	}

	var payload storeListEnvelope
	if err := s.client.JSON(ctx, backend.Request{
		Method:   http.MethodGet,
		Endpoint: "stores",
		Query:    params,
		Token:    token,
	}, &payload); err != nil {
		return ListResult{}, translate("list stores", err)
	}

	result := ListResult{Stores: payload.Data, Pagination: payload.Meta}
	if result.Stores == nil {
		result.Stores = []Store{}
	}
	if result.Pagination.Page == 0 {
		result.Pagination.Page = page
	}
	if result.Pagination.PerPage == 0 {
		result.Pagination.PerPage = perPage
	}
	if result.Pagination.LastPage < result.Pagination.Page {
		result.Pagination.LastPage = result.Pagination.Page
	}
	return result, nil
}

// Get implements Service.
func (s *HTTPService) Get(ctx context.Context, token string, id int64) (Store, error) {
	var payload storeEnvelope
	if err := s.client.JSON(ctx, backend.Request{
		Method:   http.MethodGet,
		Endpoint: storePath(id),
		Token:    token,
	}, &payload); err != nil {
		return Store{}, translate("get store", err)
	}
	return payload.Data, nil
}

// Create implements Service.
func (s *HTTPService) Create(ctx context.Context, token string, input StoreInput) (Store, error) {
	input, err := input.Normalize()
	if err != nil {
		return Store{}, err
	}
	var payload storeEnvelope
	if err := s.client.JSON(ctx, backend.Request{
		Method:   http.MethodPost,
		Endpoint: "stores",
		Body:     input,
		Token:    token,
	}, &payload); err != nil {
		return Store{}, translate("create store", err)
	}
	return payload.Data, nil
}

// Update implements Service.
func (s *HTTPService) Update(ctx context.Context, token string, id int64, input StoreInput) (Store, error) {
	input, err := input.Normalize()
	if err != nil {
		return Store{}, err
	}
	var payload storeEnvelope
	if err := s.client.JSON(ctx, backend.Request{
		Method:   http.MethodPut,
		Endpoint: storePath(id),
		Body:     input,
		Token:    token,
	}, &payload); err != nil {
		return Store{}, translate("update store", err)
	}
	return payload.Data, nil
}

// Delete implements Service.
func (s *HTTPService) Delete(ctx context.Context, token string, id int64) error {
	if err := s.client.JSON(ctx, backend.Request{
		Method:   http.MethodDelete,
		Endpoint: storePath(id),
		Token:    token,
	}, nil); err != nil {
		return translate("delete store", err)
	}
	return nil
}

// ListProducts implements Service.
func (s *HTTPService) ListProducts(ctx context.Context, token string, storeID int64, query ProductQuery) (ProductPage, error) {
	page, perPage := normalizePaging(query.Page, query.PerPage)
	result, err := s.source.ListStoreProducts(ctx, token, storeID, catalog.PageRequest{Page: page, PerPage: perPage})
	if err != nil {
		return ProductPage{}, translate("list products", err)
	}
	return productPage(storeID, result, page, perPage), nil
}

// UpdateProduct implements Service.
func (s *HTTPService) UpdateProduct(ctx context.Context, token string, storeID, stockID int64, input StockInput) (catalog.StockRecord, error) {
	update, err := input.Normalize()
	if err != nil {
		return catalog.StockRecord{}, err
	}

	resp, err := s.client.Do(ctx, backend.Request{
		Method:   http.MethodPatch,
		Endpoint: fmt.Sprintf("%s/products/%d", storePath(storeID), stockID),
		Body:     update,
		Token:    token,
	})
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return catalog.StockRecord{}, ErrStockNotFound
		}
		return catalog.StockRecord{}, translate("update product", err)
	}
	defer resp.Body.Close()
	return decodeRecord(resp.Body)
}

// GetProduct implements Service.
func (s *HTTPService) GetProduct(ctx context.Context, token string, storeID, stockID int64) (catalog.StockRecord, error) {
	resp, err := s.client.Do(ctx, backend.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("%s/products/%d", storePath(storeID), stockID),
		Token:    token,
	})
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return catalog.StockRecord{}, ErrStockNotFound
		}
		return catalog.StockRecord{}, translate("get product", err)
	}
	defer resp.Body.Close()
	return decodeRecord(resp.Body)
}

func decodeRecord(body io.Reader) (catalog.StockRecord, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil || len(envelope.Data) == 0 {
		return catalog.StockRecord{}, fmt.Errorf("stores: decode product: %w", errors.Join(catalog.ErrUnexpectedResponse, err))
	}
	record, err := catalog.DecodeRecord(envelope.Data)
	if err != nil {
		return catalog.StockRecord{}, fmt.Errorf("stores: decode product: %w", err)
	}
	return record, nil
}

func storePath(id int64) string {
	return "stores/" + strconv.FormatInt(id, 10)
}

func productPage(storeID int64, result catalog.Page, page, perPage int) ProductPage {
	out := ProductPage{
		StoreID:    storeID,
		Items:      result.Items,
		Pagination: Pagination{Page: page, PerPage: perPage, LastPage: page},
	}
	if out.Items == nil {
		out.Items = []catalog.StockRecord{}
	}
	if meta := result.Meta; meta != nil {
		if meta.CurrentPage != nil {
			out.Pagination.Page = *meta.CurrentPage
		}
		if meta.LastPage != nil && *meta.LastPage >= out.Pagination.Page {
			out.Pagination.LastPage = *meta.LastPage
		}
		if meta.Total != nil {
			out.Pagination.Total = *meta.Total
		}
	}
	return out
}

// translate maps backend failures onto the package error vocabulary.
func translate(op string, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return ErrStoreNotFound
	}
	if fields := backend.FieldErrors(err); len(fields) > 0 {
		verr := &ValidationError{}
		for _, name := range backend.SortedFields(fields) {
			if msgs := fields[name]; len(msgs) > 0 {
				verr.add(name, msgs[0])
			}
		}
		return verr
	}
	return fmt.Errorf("stores: %s: %w", op, err)
}
