package catalog

// PerPage is the fixed page size requested from the catalog endpoint.
const PerPage = 100

// Product describes the sellable item referenced by a stock record.
type Product struct {
	Brand  string `json:"brand"`
	Name   string `json:"name"`
	Flavor string `json:"flavor"`
}

// StockRecord is the per-store stock and pricing row for a product.
type StockRecord struct {
	ID            int64
	StoreID       int64
	Product       *Product
	Active        bool
	StockQuantity int64
	// CostPrice and SalePrice keep the decimal text exactly as received.
	CostPrice string
	SalePrice string
}

// Eligible reports whether the record may appear in the product list: it must
// reference a product, be active and have at least one unit in stock.
func (r StockRecord) Eligible() bool {
	return r.Product != nil && r.Active && r.StockQuantity >= 1
}

// PageRequest selects a page of the store catalog.
type PageRequest struct {
	Page    int
	PerPage int
}

// PageMeta is the pagination metadata reported by the backend. Either field may be absent.
type PageMeta struct {
	CurrentPage *int
	LastPage    *int
	Total       *int
}

// Page is a single response of the paginated store products endpoint.
type Page struct {
	Items      []StockRecord
	PageNumber int
	TotalPages *int
	Meta       *PageMeta
	// Skipped counts entries of data that could not be decoded into a record.
	Skipped int
}

// HasNext reports whether the backend announced a further page.
func (p Page) HasNext() bool {
	if p.Meta == nil || p.Meta.CurrentPage == nil || p.Meta.LastPage == nil {
		return false
	}
	return *p.Meta.CurrentPage < *p.Meta.LastPage
}

// MetaMissing reports whether the continuation metadata was incomplete.
func (p Page) MetaMissing() bool {
	return p.Meta == nil || p.Meta.CurrentPage == nil || p.Meta.LastPage == nil
}
