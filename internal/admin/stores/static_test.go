package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/catalog"
)

func TestStaticServiceListSearchAndPaging(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()

	all, err := svc.List(ctx, "", Query{})
	require.NoError(t, err)
	require.Len(t, all.Stores, 3)
	require.Equal(t, int64(1), all.Stores[0].ID)
	require.Equal(t, 9, all.Stores[0].Products)

	santos, err := svc.List(ctx, "", Query{Search: "santos"})
	require.NoError(t, err)
	require.Len(t, santos.Stores, 1)
	require.Equal(t, "Quiosque Praia", santos.Stores[0].Name)

	saoPaulo, err := svc.List(ctx, "", Query{Search: "SAO PAULO"})
	require.NoError(t, err)
	require.Len(t, saoPaulo.Stores, 2, "search ignores case and accents")

	paged, err := svc.List(ctx, "", Query{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, paged.Stores, 1)
	require.True(t, paged.Pagination.HasPrev())
	require.False(t, paged.Pagination.HasNext())
	require.Equal(t, 3, paged.Pagination.Total)
}

func TestStaticServiceStoreLifecycle(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "", StoreInput{Name: " Loja Sul ", City: "Curitiba", Active: true})
	require.NoError(t, err)
	require.Equal(t, "Loja Sul", created.Name)

	updated, err := svc.Update(ctx, "", created.ID, StoreInput{Name: "Loja Sul 2", City: "Curitiba"})
	require.NoError(t, err)
	require.False(t, updated.Active)

	_, err = svc.Update(ctx, "", created.ID, StoreInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.Delete(ctx, "", created.ID))
	_, err = svc.Get(ctx, "", created.ID)
	require.ErrorIs(t, err, ErrStoreNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "", created.ID), ErrStoreNotFound)
}

func TestStaticServiceUpdateProduct(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, "", 1, ProductQuery{})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	target := page.Items[0]

	record, err := svc.UpdateProduct(ctx, "", 1, target.ID, StockInput{StockQuantity: "0", SalePrice: "91,5", Active: true})
	require.NoError(t, err)
	require.Equal(t, int64(0), record.StockQuantity)
	require.Equal(t, "91.50", record.SalePrice)
	require.Equal(t, target.CostPrice, record.CostPrice)

	_, err = svc.UpdateProduct(ctx, "", 1, 9999, StockInput{StockQuantity: "1", SalePrice: "1"})
	require.ErrorIs(t, err, ErrStockNotFound)
	_, err = svc.UpdateProduct(ctx, "", 42, target.ID, StockInput{StockQuantity: "1", SalePrice: "1"})
	require.ErrorIs(t, err, ErrStoreNotFound)

	fetched, err := svc.GetProduct(ctx, "", 1, target.ID)
	require.NoError(t, err)
	require.Equal(t, "91.50", fetched.SalePrice)
	_, err = svc.GetProduct(ctx, "", 1, 9999)
	require.ErrorIs(t, err, ErrStockNotFound)
}

func TestStaticServiceServesCatalogPages(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	records, err := catalog.NewFetcher(svc).FetchEligible(context.Background(), "", "1")
	require.NoError(t, err)
	for _, r := range records {
		require.True(t, r.Eligible())
	}
	require.Len(t, records, 7)

	text := catalog.Render(catalog.Aggregate(records), "Loja Centro")
	require.Contains(t, text, "🔴 *V80 - R$89,90*\n- Menta\n- Uva Gelada\n\n")
	require.Contains(t, text, "🔴 *V150 - R$129,90*\n- Melancia\n\n")
	require.NotContains(t, text, "Morango")
	require.NotContains(t, text, "Kiwi")

	page, err := svc.ListStoreProducts(context.Background(), "", 1, catalog.PageRequest{Page: 1, PerPage: 4})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	require.True(t, page.HasNext())

	_, err = svc.ListStoreProducts(context.Background(), "", 77, catalog.PageRequest{Page: 1, PerPage: 4})
	require.ErrorIs(t, err, ErrStoreNotFound)
}
