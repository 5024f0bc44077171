package productlist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/stores"
)

func sampleSnapshot() *catalog.Snapshot {
	grouping := catalog.Grouping{Brands: []catalog.BrandGroup{{
		Brand: "Ignite",
		Variants: []catalog.Variant{{
			Brand: "Ignite", Name: "V80", SalePrice: "89.9",
			Flavors: []string{"Uva", "Menta"},
		}},
	}}}
	return &catalog.Snapshot{
		LoadID:    "01HZX",
		StoreID:   "1",
		StoreName: "Loja Centro",
		Records:   make([]catalog.StockRecord, 2),
		Grouping:  grouping,
		Text:      catalog.Render(grouping, "Loja Centro"),
		LoadedAt:  time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
	}
}

func TestBuildPanelWithSnapshot(t *testing.T) {
	t.Parallel()

	panel := BuildPanel("/admin", "1", "", catalog.State{Snapshot: sampleSnapshot()}, true, "tok")

	require.True(t, panel.HasSnapshot())
	require.False(t, panel.AutoLoad)
	require.Empty(t, panel.Error)
	require.Equal(t, "Loja Centro", panel.StoreName)
	require.Equal(t, "01/05/2024 12:00:00", panel.LoadedAt)
	require.Equal(t, 2, panel.Records)
	require.Equal(t, 1, panel.Variants)
	require.Equal(t, "/admin/product-list/refresh?store=1", panel.RefreshURL)
	require.Equal(t, "/admin/product-list/export.txt?store=1", panel.ExportURL)
	require.Len(t, panel.Brands, 1)
	require.Equal(t, "🔴 *V80 - R$89,90*", panel.Brands[0].Variants[0].Header)
	require.Equal(t, []string{"Menta", "Uva"}, panel.Brands[0].Variants[0].Flavors)
}

func TestBuildPanelErrorReplacesResult(t *testing.T) {
	t.Parallel()

	state := catalog.State{Err: &catalog.TransportError{StoreID: 1, Page: 2, Err: errors.New("connection reset")}}
	panel := BuildPanel("/admin", "1", "Loja Centro", state, true, "")

	require.False(t, panel.HasSnapshot())
	require.False(t, panel.AutoLoad)
	require.Empty(t, panel.Text)
	require.Equal(t, "Falha ao carregar os produtos: connection reset", panel.Error)
}

func TestBuildPanelAutoLoadsOnlyWithStore(t *testing.T) {
	t.Parallel()

	require.True(t, BuildPanel("/admin", "3", "", catalog.State{}, false, "").AutoLoad)
	require.False(t, BuildPanel("/admin", "", "", catalog.State{}, false, "").AutoLoad)
}

func TestBuildStoreOptionsMarksSelection(t *testing.T) {
	t.Parallel()

	options := BuildStoreOptions([]stores.Store{{ID: 1, Name: "Loja Centro"}, {ID: 2, Name: "Loja Norte"}}, "2")
	require.Equal(t, []StoreOption{
		{ID: "1", Name: "Loja Centro"},
		{ID: "2", Name: "Loja Norte", Selected: true},
	}, options)
}

func TestPanelRendersTextAndActions(t *testing.T) {
	t.Parallel()

	panel := BuildPanel("/admin", "1", "", catalog.State{Snapshot: sampleSnapshot()}, true, "tok")

	var buf strings.Builder
	require.NoError(t, Panel(panel).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	require.NoError(t, err)

	require.Equal(t, sampleSnapshot().Text, doc.Find("[data-product-list-text]").Text())
	require.Equal(t, "01HZX", doc.Find("[data-product-list-text]").AttrOr("data-load-id", ""))
	require.Equal(t, "/admin/product-list/copy?store=1", doc.Find("[data-copy]").AttrOr("data-copy-url", ""))
	require.Equal(t, 1, doc.Find("[data-archive]").Length())
	require.Equal(t, 0, doc.Find("[data-product-list-error]").Length())
}

func TestPanelRendersErrorWithoutText(t *testing.T) {
	t.Parallel()

	panel := BuildPanel("/admin", "1", "", catalog.State{Err: catalog.ErrUnexpectedResponse}, true, "tok")

	var buf strings.Builder
	require.NoError(t, Panel(panel).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	require.NoError(t, err)

	require.Contains(t, doc.Find("[data-product-list-error]").Text(), "resposta inesperada")
	require.Equal(t, 0, doc.Find("[data-product-list-text]").Length())
	require.Equal(t, 0, doc.Find("[data-copy]").Length())
}
