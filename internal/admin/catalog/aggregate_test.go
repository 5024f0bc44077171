package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func variantNames(vs []Variant) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name+"@"+v.SalePrice)
	}
	return out
}

func TestAggregateGroupsFlavorsUnderVariant(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "10.00", 5, true),
		record("X", "A", "Menta", "10.00", 2, true),
		record("X", "A", "Mint", "10.00", 1, true),
	})

	variants, ok := grouping.Brand("X")
	require.True(t, ok)
	require.Len(t, variants, 1)
	require.ElementsMatch(t, []string{"Mint", "Menta"}, variants[0].Flavors)
	require.Equal(t, "🔴 *A - R$10,00*", VariantHeader(variants[0]))
}

func TestAggregateKeysOnExactPriceText(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "10.00", 1, true),
		record("X", "A", "Grape", "10.0", 1, true),
	})

	require.Equal(t, 2, grouping.VariantCount())
	variants, _ := grouping.Brand("X")
	for _, v := range variants {
		require.Equal(t, "🔴 *A - R$10,00*", VariantHeader(v))
	}
}

func TestAggregateRechecksEligibility(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "10.00", 0, true),
		record("X", "B", "Mint", "10.00", 3, false),
		{Active: true, StockQuantity: 9, SalePrice: "1"},
	})
	require.True(t, grouping.Empty())
	require.Zero(t, grouping.VariantCount())
}

func TestAggregateOrdering(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("beta", "Zeta", "Mint", "5", 1, true),
		record("Alpha", "Zeta", "Mint", "5", 1, true),
		record("Alpha", "Ébano", "Mint", "5", 1, true),
		record("Alpha", "Banana", "Mint", "10.00", 1, true),
		record("Alpha", "Banana", "Mint", "9.90", 1, true),
		record("Alpha", "abacaxi", "Mint", "7", 1, true),
	})

	brands := make([]string, 0, len(grouping.Brands))
	for _, b := range grouping.Brands {
		brands = append(brands, b.Brand)
	}
	require.Equal(t, []string{"Alpha", "beta"}, brands)

	variants, _ := grouping.Brand("Alpha")
	require.Equal(t, []string{"abacaxi@7", "Banana@9.90", "Banana@10.00", "Ébano@5", "Zeta@5"}, variantNames(variants))
}

func TestAggregateSortsUnparseablePricesLast(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "sob consulta", 1, true),
		record("X", "A", "Mint", "3.00", 1, true),
		record("X", "A", "Mint", "", 1, true),
	})

	variants, _ := grouping.Brand("X")
	require.Equal(t, []string{"A@3.00", "A@sob consulta", "A@"}, variantNames(variants))
}

func TestAggregatePriceOrderIsTotal(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "10", 1, true),
		record("X", "A", "Mint", "x", 1, true),
		record("X", "A", "Mint", "5", 1, true),
	})

	variants, _ := grouping.Brand("X")
	require.Equal(t, []string{"A@5", "A@10", "A@x"}, variantNames(variants))

	prices := []string{"10", "x", "5", "", "9.5", "y"}
	for _, a := range prices {
		require.Zero(t, comparePrices(a, a), a)
		for _, b := range prices {
			require.Equal(t, -comparePrices(b, a), comparePrices(a, b), "%q vs %q", a, b)
			for _, c := range prices {
				if comparePrices(a, b) <= 0 && comparePrices(b, c) <= 0 {
					require.LessOrEqual(t, comparePrices(a, c), 0, "%q <= %q <= %q", a, b, c)
				}
			}
		}
	}
}

func TestAggregateKeepsBlankFlavors(t *testing.T) {
	t.Parallel()

	records := []StockRecord{
		record("X", "A", "  ", "1", 1, true),
		record("X", "A", "", "1", 1, true),
		record("X", "A", "", "1", 2, true),
	}
	grouping := Aggregate(records)

	variants, _ := grouping.Brand("X")
	require.Len(t, variants, 1)
	require.Equal(t, []string{"  ", ""}, variants[0].Flavors)
	for _, r := range records {
		require.Contains(t, variants[0].Flavors, r.Product.Flavor)
	}
}

func TestAggregatePartitionsEligibleRecords(t *testing.T) {
	t.Parallel()

	records := []StockRecord{
		record("X", "A", "Mint", "1", 1, true),
		record("X", "A", "Lime", "1", 4, true),
		record("X", "B", "Mint", "1", 2, true),
		record("Y", "A", "Mint", "1", 1, true),
		record("Y", "A", "Mint", "2", 1, true),
	}
	grouping := Aggregate(records)

	for _, r := range records {
		found := 0
		for _, b := range grouping.Brands {
			for _, v := range b.Variants {
				if v.Brand == r.Product.Brand && v.Name == r.Product.Name && v.SalePrice == r.SalePrice {
					require.Equal(t, b.Brand, v.Brand)
					require.Contains(t, v.Flavors, r.Product.Flavor)
					found++
				}
			}
		}
		require.Equal(t, 1, found, "record %+v", r)
	}
	require.Equal(t, 4, grouping.VariantCount())
}
