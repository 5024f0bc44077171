package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultMaxPages = 1000
	tracerName      = "finitefield.org/store-admin/internal/admin/catalog"
)

// FetcherOption customises a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger used for pagination diagnostics.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxPages bounds the number of pages a single load may request.
func WithMaxPages(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// WithTracer overrides the tracer used for per-page spans.
func WithTracer(tracer trace.Tracer) FetcherOption {
	return func(f *Fetcher) {
		if tracer != nil {
			f.tracer = tracer
		}
	}
}

// Fetcher walks the paginated store products endpoint and keeps eligible records.
type Fetcher struct {
	source   PageSource
	logger   *zap.Logger
	tracer   trace.Tracer
	maxPages int
}

// NewFetcher constructs a Fetcher reading pages from source.
func NewFetcher(source PageSource, opts ...FetcherOption) *Fetcher {
	if source == nil {
		panic("catalog: page source is required")
	}
	f := &Fetcher{
		source:   source,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseStoreID validates a store identifier supplied by the UI or CLI.
func ParseStoreID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidStore
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidStore
	}
	return id, nil
}

// FetchEligible loads every page of the store catalog, one request at a time,
// and returns the records that pass the eligibility predicate. Any failure
// discards what was accumulated so far.
func (f *Fetcher) FetchEligible(ctx context.Context, token, storeID string) ([]StockRecord, error) {
	id, err := ParseStoreID(storeID)
	if err != nil {
		return nil, err
	}

	logger := f.logger.With(zap.Int64("store_id", id))
	var eligible []StockRecord

	for page := 1; ; page++ {
		if page > f.maxPages {
			logger.Error("catalog page limit exceeded", zap.Int("max_pages", f.maxPages))
			return nil, errors.Join(ErrUnexpectedResponse, errors.New("catalog: page limit exceeded"))
		}
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{StoreID: id, Page: page, Err: err}
		}

		result, err := f.fetchPage(ctx, token, id, page)
		if err != nil {
			if errors.Is(err, ErrUnexpectedResponse) {
				logger.Warn("catalog response rejected", zap.Int("page", page), zap.Error(err))
				return nil, err
			}
			return nil, &TransportError{StoreID: id, Page: page, Err: err}
		}

		if result.Skipped > 0 {
			logger.Warn("catalog entries skipped", zap.Int("page", page), zap.Int("skipped", result.Skipped))
		}
		for _, record := range result.Items {
			if record.Eligible() {
				eligible = append(eligible, record)
			}
		}

		if result.MetaMissing() {
			logger.Warn("catalog pagination metadata missing; stopping after this page",
				zap.Int("page", page),
				zap.Int("items", len(result.Items)),
			)
			break
		}
		if !result.HasNext() {
			break
		}
	}

	logger.Debug("catalog fetched", zap.Int("eligible", len(eligible)))
	if eligible == nil {
		eligible = []StockRecord{}
	}
	return eligible, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, token string, storeID int64, page int) (Page, error) {
	ctx, span := f.tracer.Start(ctx, "catalog.fetch_page", trace.WithAttributes(
		attribute.Int64("store.id", storeID),
		attribute.Int("catalog.page", page),
		attribute.Int("catalog.per_page", PerPage),
	))
	defer span.End()

	result, err := f.source.ListStoreProducts(ctx, token, storeID, PageRequest{Page: page, PerPage: PerPage})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Page{}, err
	}
	span.SetAttributes(attribute.Int("catalog.items", len(result.Items)))
	return result, nil
}
