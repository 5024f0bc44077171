package stores

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"finitefield.org/store-admin/internal/admin/catalog"
)

// StaticService keeps stores and stock in memory. It backs local development
// and tests, and serves as a catalog page source so the product list works
// without a backend.
type StaticService struct {
	mu        sync.RWMutex
	now       func() time.Time
	stores    map[int64]Store
	stock     map[int64][]catalog.StockRecord
	nextStore int64
	nextStock int64
}

// NewStaticService returns a StaticService populated with representative stores.
func NewStaticService() *StaticService {
	now := time.Now()
	svc := &StaticService{
		now:    time.Now,
		stores: make(map[int64]Store),
		stock:  make(map[int64][]catalog.StockRecord),
	}

	seedStores := []Store{
		{ID: 1, Name: "Loja Centro", City: "São Paulo", Address: "Rua Direita, 120", Phone: "(11) 3333-0101", Active: true},
		{ID: 2, Name: "Loja Shopping Norte", City: "São Paulo", Address: "Av. Otto Baumgart, 500 - Loja 214", Phone: "(11) 3333-0202", Active: true},
		{ID: 3, Name: "Quiosque Praia", City: "Santos", Address: "Av. Presidente Wilson, 10", Active: false},
	}
	for i, store := range seedStores {
		store.CreatedAt = now.Add(-time.Duration(90-i*10) * 24 * time.Hour)
		store.UpdatedAt = now.Add(-time.Duration(i+1) * time.Hour)
		svc.stores[store.ID] = store
		svc.nextStore = store.ID
	}

	type row struct {
		brand, name, flavor string
		qty                 int64
		active              bool
		cost, sale          string
	}
	seedStock := map[int64][]row{
		1: {
			{"Ignite", "V80", "Menta", 12, true, "48.00", "89.90"},
			{"Ignite", "V80", "Uva Gelada", 4, true, "48.00", "89.90"},
			{"Ignite", "V80", "Morango", 0, true, "48.00", "89.90"},
			{"Ignite", "V150", "Melancia", 7, true, "70.00", "129.9"},
			{"Elf Bar", "BC5000", "Blue Razz", 9, true, "40.00", "79.90"},
			{"Elf Bar", "BC5000", "Açaí", 3, true, "40.00", "79.90"},
			{"Elf Bar", "BC5000", "Kiwi", 2, false, "40.00", "79.90"},
			{"Elf Bar", "Ártico", "Menta", 5, true, "35.00", "69.90"},
			{"Lost Mary", "OS5000", "Pêssego", 6, true, "42.50", "84.5"},
		},
		2: {
			{"Ignite", "V80", "Menta", 3, true, "48.00", "92.00"},
			{"Lost Mary", "OS5000", "Manga", 1, true, "42.50", "84.50"},
		},
	}
	for _, storeID := range []int64{1, 2} {
		rows := seedStock[storeID]
		records := make([]catalog.StockRecord, 0, len(rows))
		for _, r := range rows {
			svc.nextStock++
			records = append(records, catalog.StockRecord{
				ID:            svc.nextStock,
				StoreID:       storeID,
				Product:       &catalog.Product{Brand: r.brand, Name: r.name, Flavor: r.flavor},
				Active:        r.active,
				StockQuantity: r.qty,
				CostPrice:     r.cost,
				SalePrice:     r.sale,
			})
		}
		svc.stock[storeID] = records
	}
	for id, store := range svc.stores {
		store.Products = len(svc.stock[id])
		svc.stores[id] = store
	}
	return svc
}

// List implements Service.
func (s *StaticService) List(_ context.Context, _ string, query Query) (ListResult, error) {
	page, perPage := normalizePaging(query.Page, query.PerPage)
	matches := searchMatcher(query.Search)

	s.mu.RLock()
	matched := make([]Store, 0, len(s.stores))
	for _, store := range s.stores {
		if matches(store.Name) || matches(store.City) {
			matched = append(matched, store)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start, end, pagination := paginate(len(matched), page, perPage)
	return ListResult{Stores: matched[start:end], Pagination: pagination}, nil
}

// Get implements Service.
func (s *StaticService) Get(_ context.Context, _ string, id int64) (Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	store, ok := s.stores[id]
	if !ok {
		return Store{}, ErrStoreNotFound
	}
	return store, nil
}

// Create implements Service.
func (s *StaticService) Create(_ context.Context, _ string, input StoreInput) (Store, error) {
	input, err := input.Normalize()
	if err != nil {
		return Store{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextStore++
	now := s.now()
	store := Store{
		ID:        s.nextStore,
		Name:      input.Name,
		City:      input.City,
		Address:   input.Address,
		Phone:     input.Phone,
		Active:    input.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stores[store.ID] = store
	return store, nil
}

// Update implements Service.
func (s *StaticService) Update(_ context.Context, _ string, id int64, input StoreInput) (Store, error) {
	input, err := input.Normalize()
	if err != nil {
		return Store{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.stores[id]
	if !ok {
		return Store{}, ErrStoreNotFound
	}
	store.Name = input.Name
	store.City = input.City
	store.Address = input.Address
	store.Phone = input.Phone
	store.Active = input.Active
	store.UpdatedAt = s.now()
	s.stores[id] = store
	return store, nil
}

// Delete implements Service.
func (s *StaticService) Delete(_ context.Context, _ string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[id]; !ok {
		return ErrStoreNotFound
	}
	delete(s.stores, id)
	delete(s.stock, id)
	return nil
}

// ListProducts implements Service.
func (s *StaticService) ListProducts(ctx context.Context, token string, storeID int64, query ProductQuery) (ProductPage, error) {
	page, perPage := normalizePaging(query.Page, query.PerPage)
	result, err := s.ListStoreProducts(ctx, token, storeID, catalog.PageRequest{Page: page, PerPage: perPage})
	if err != nil {
		return ProductPage{}, err
	}
	return productPage(storeID, result, page, perPage), nil
}

// UpdateProduct implements Service.
func (s *StaticService) UpdateProduct(_ context.Context, _ string, storeID, stockID int64, input StockInput) (catalog.StockRecord, error) {
	update, err := input.Normalize()
	if err != nil {
		return catalog.StockRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return catalog.StockRecord{}, ErrStoreNotFound
	}
	records := s.stock[storeID]
	for i := range records {
		if records[i].ID != stockID {
			continue
		}
		records[i].Active = update.Active
		records[i].StockQuantity = update.StockQuantity
		if update.CostPrice != "" {
			records[i].CostPrice = update.CostPrice
		}
		records[i].SalePrice = update.SalePrice
		return records[i], nil
	}
	return catalog.StockRecord{}, ErrStockNotFound
}

// GetProduct implements Service.
func (s *StaticService) GetProduct(_ context.Context, _ string, storeID, stockID int64) (catalog.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.stores[storeID]; !ok {
		return catalog.StockRecord{}, ErrStoreNotFound
	}
	for _, rec := range s.stock[storeID] {
		if rec.ID == stockID {
			return rec, nil
		}
	}
	return catalog.StockRecord{}, ErrStockNotFound
}

// ListStoreProducts implements catalog.PageSource over the in-memory stock.
func (s *StaticService) ListStoreProducts(ctx context.Context, _ string, storeID int64, req catalog.PageRequest) (catalog.Page, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Page{}, err
	}
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = catalog.PerPage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.stores[storeID]; !ok {
		return catalog.Page{}, ErrStoreNotFound
	}
	records := s.stock[storeID]

	start, end, pagination := paginate(len(records), page, perPage)
	items := make([]catalog.StockRecord, end-start)
	copy(items, records[start:end])

	current, last, total := pagination.Page, pagination.LastPage, pagination.Total
	return catalog.Page{
		Items:      items,
		PageNumber: current,
		TotalPages: &last,
		Meta:       &catalog.PageMeta{CurrentPage: &current, LastPage: &last, Total: &total},
	}, nil
}

func paginate(total, page, perPage int) (int, int, Pagination) {
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end, Pagination{Page: page, PerPage: perPage, LastPage: last, Total: total}
}

// searchMatcher reports whether a field contains term, ignoring case and
// accents the way the backend's search does. A blank term matches everything.
func searchMatcher(term string) func(string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return func(string) bool { return true }
	}
	pattern := search.New(language.BrazilianPortuguese, search.Loose).CompileString(term)
	return func(field string) bool {
		start, _ := pattern.IndexString(field)
		return start >= 0
	}
}
