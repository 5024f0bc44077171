package stores

import (
	"context"
	"errors"
	"time"

	"finitefield.org/store-admin/internal/admin/catalog"
)

var (
	// ErrNotConfigured indicates that the stores service dependency has not been wired.
	ErrNotConfigured = errors.New("stores service not configured")
	// ErrStoreNotFound indicates the requested store does not exist.
	ErrStoreNotFound = errors.New("stores: store not found")
	// ErrStockNotFound indicates the requested stock record does not exist in the store.
	ErrStockNotFound = errors.New("stores: stock record not found")
)

// Service exposes store management and per-store stock maintenance for staff users.
type Service interface {
	// List returns a page of stores matching the query.
	List(ctx context.Context, token string, query Query) (ListResult, error)
	// Get returns a single store.
	Get(ctx context.Context, token string, id int64) (Store, error)
	// Create registers a new store.
	Create(ctx context.Context, token string, input StoreInput) (Store, error)
	// Update replaces the editable fields of a store.
	Update(ctx context.Context, token string, id int64, input StoreInput) (Store, error)
	// Delete removes a store.
	Delete(ctx context.Context, token string, id int64) error
	// ListProducts returns a page of the store's stock records.
	ListProducts(ctx context.Context, token string, storeID int64, query ProductQuery) (ProductPage, error)
	// GetProduct returns one stock record of the store.
	GetProduct(ctx context.Context, token string, storeID, stockID int64) (catalog.StockRecord, error)
	// UpdateProduct changes stock and pricing of one stock record.
	UpdateProduct(ctx context.Context, token string, storeID, stockID int64, input StockInput) (catalog.StockRecord, error)
}

// Store is a physical or online point of sale.
type Store struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"isActive"`
	Products  int       `json:"productsCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Query filters the store list.
type Query struct {
	Search  string
	Page    int
	PerPage int
}

// Pagination describes the position of a result page.
type Pagination struct {
	Page     int `json:"currentPage"`
	PerPage  int `json:"perPage"`
	LastPage int `json:"lastPage"`
	Total    int `json:"total"`
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a further page exists.
func (p Pagination) HasNext() bool { return p.Page < p.LastPage }

// ListResult is a page of stores.
type ListResult struct {
	Stores     []Store
	Pagination Pagination
}

// ProductQuery selects a page of a store's stock records.
type ProductQuery struct {
	Page    int
	PerPage int
}

// ProductPage is a page of stock records for one store.
type ProductPage struct {
	StoreID    int64
	Items      []catalog.StockRecord
	Pagination Pagination
}

const (
	defaultPerPage = 20
	maxPerPage     = catalog.PerPage
)

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return page, perPage
}
