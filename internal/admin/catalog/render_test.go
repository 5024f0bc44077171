package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const renderHeader = "✨ *LISTA DE PRODUTOS* ✨\n" +
	"\n" +
	"\n" +
	"💎 Participe do nosso programa de fidelidade e acumule pontos em todas as compras!\n" +
	"\n"

func TestRenderDocument(t *testing.T) {
	t.Parallel()

	grouping := Aggregate([]StockRecord{
		record("X", "A", "Mint", "10.00", 5, true),
		record("X", "A", "Menta", "10.00", 2, true),
		record("Y", "B", "Uva", "7.5", 1, true),
	})

	want := renderHeader +
		"🚚 Frete grátis para Loja Centro!\n" +
		"\n" +
		"\n" +
		"🔴 *A - R$10,00*\n" +
		"- Menta\n" +
		"- Mint\n" +
		"\n" +
		"🔴 *B - R$7,50*\n" +
		"- Uva\n" +
		"\n"

	got := Render(grouping, "Loja Centro")
	require.Equal(t, want, got)
	require.Equal(t, got, Render(grouping, "Loja Centro"))
}

func TestRenderEmptyGroupingIsHeaderOnly(t *testing.T) {
	t.Parallel()

	got := Render(Grouping{}, "")
	require.Equal(t, renderHeader+"🚚 Frete grátis para nossa loja!\n\n\n", got)
	require.NotContains(t, got, "🔴")
}

func TestRenderVariantWithoutFlavors(t *testing.T) {
	t.Parallel()

	got := Render(Grouping{Brands: []BrandGroup{{
		Brand:    "X",
		Variants: []Variant{{Brand: "X", Name: "Pod", SalePrice: "3"}},
	}}}, "Loja")
	require.True(t, strings.HasSuffix(got, "🔴 *Pod - R$3,00*\n\n"))
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"10":           "10,00",
		"10.0":         "10,00",
		"12.5":         "12,50",
		"89.90":        "89,90",
		"0.005":        "0,01",
		"1.005":        "1,01",
		"2.675":        "2,68",
		"-1.005":       "-1,01",
		"12.5abc":      "12,5abc",
		" 7.25 ":       "7,25",
		"sob consulta": "sob consulta",
		"abc.def":      "abc,def",
		"":             "",
	}
	for in, want := range tests {
		require.Equal(t, want, FormatPrice(in), "price %q", in)
	}
}
