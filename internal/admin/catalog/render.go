package catalog

import (
	"sort"
	"strings"
)

// DefaultStoreName is interpolated into the shipping line when no store name is known.
const DefaultStoreName = "nossa loja"

const (
	titleLine      = "✨ *LISTA DE PRODUTOS* ✨"
	loyaltyLine    = "💎 Participe do nosso programa de fidelidade e acumule pontos em todas as compras!"
	shippingPrefix = "🚚 Frete grátis para "
	shippingSuffix = "!"
	variantMarker  = "🔴"
	flavorMarker   = "- "
	currencyPrefix = "R$"
)

// Render turns a grouping into the plain-text list distributed through
// messaging apps. Output is byte-identical for identical input.
func Render(g Grouping, storeName string) string {
	storeName = strings.TrimSpace(storeName)
	if storeName == "" {
		storeName = DefaultStoreName
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(titleLine)
	line("")
	line("")
	line(loyaltyLine)
	line("")
	line(shippingPrefix + storeName + shippingSuffix)
	line("")
	line("")

	for _, brand := range g.Brands {
		for _, variant := range brand.Variants {
			line(VariantHeader(variant))
			flavors := append([]string(nil), variant.Flavors...)
			sort.Strings(flavors)
			for _, flavor := range flavors {
				line(flavorMarker + flavor)
			}
			line("")
		}
	}
	return b.String()
}

// VariantHeader renders the bold product line, e.g. "🔴 *Pod X - R$10,00*".
func VariantHeader(v Variant) string {
	return variantMarker + " *" + v.Name + " - " + currencyPrefix + FormatPrice(v.SalePrice) + "*"
}

// FormatPrice fixes a decimal price to two places with a comma separator,
// e.g. "12.5" → "12,50". Text that is not a number is returned with its
// decimal point swapped for a comma.
func FormatPrice(price string) string {
	d, ok := parsePrice(price)
	if !ok {
		return strings.Replace(strings.TrimSpace(price), ".", ",", 1)
	}
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
