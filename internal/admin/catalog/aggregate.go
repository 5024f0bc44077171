package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Variant groups the flavors sold under one brand, name and sale price text.
type Variant struct {
	Brand     string
	Name      string
	SalePrice string
	Flavors   []string
}

// Key returns the grouping identity of the variant.
func (v Variant) Key() string {
	return v.Brand + "|" + v.Name + "|" + v.SalePrice
}

// BrandGroup holds the sorted variants of a single brand.
type BrandGroup struct {
	Brand    string
	Variants []Variant
}

// Grouping is the brand-ordered result of Aggregate.
type Grouping struct {
	Brands []BrandGroup
}

// Empty reports whether the grouping holds no variants.
func (g Grouping) Empty() bool {
	return len(g.Brands) == 0
}

// VariantCount returns the number of variants across all brands.
func (g Grouping) VariantCount() int {
	n := 0
	for _, b := range g.Brands {
		n += len(b.Variants)
	}
	return n
}

// Brand returns the variants for the named brand.
func (g Grouping) Brand(name string) ([]Variant, bool) {
	for _, b := range g.Brands {
		if b.Brand == name {
			return b.Variants, true
		}
	}
	return nil, false
}

// Collation used for product names.
var collationTag = language.BrazilianPortuguese

type variantKey struct {
	brand, name, salePrice string
}

type variantAcc struct {
	variant Variant
	seen    map[string]struct{}
}

// Aggregate groups eligible records into brand → variant → flavors. Records are
// re-checked against the eligibility predicate. Variants are keyed on the exact
// sale price text, so "10.00" and "10.0" form distinct variants. Brands sort
// by plain string order; variants by collated name, then numeric sale price.
func Aggregate(records []StockRecord) Grouping {
	accs := make(map[variantKey]*variantAcc)
	byBrand := make(map[string][]*variantAcc)

	for _, record := range records {
		if !record.Eligible() {
			continue
		}
		key := variantKey{
			brand:     record.Product.Brand,
			name:      record.Product.Name,
			salePrice: record.SalePrice,
		}
		acc, ok := accs[key]
		if !ok {
			acc = &variantAcc{
				variant: Variant{Brand: key.brand, Name: key.name, SalePrice: key.salePrice},
				seen:    make(map[string]struct{}),
			}
			accs[key] = acc
			byBrand[key.brand] = append(byBrand[key.brand], acc)
		}
		flavor := record.Product.Flavor
		if _, dup := acc.seen[flavor]; dup {
			continue
		}
		acc.seen[flavor] = struct{}{}
		acc.variant.Flavors = append(acc.variant.Flavors, flavor)
	}

	brands := make([]string, 0, len(byBrand))
	for brand := range byBrand {
		brands = append(brands, brand)
	}
	sort.Strings(brands)

	collator := collate.New(collationTag)
	grouping := Grouping{Brands: make([]BrandGroup, 0, len(brands))}
	for _, brand := range brands {
		accList := byBrand[brand]
		variants := make([]Variant, 0, len(accList))
		for _, acc := range accList {
			variants = append(variants, acc.variant)
		}
		sort.SliceStable(variants, func(i, j int) bool {
			if c := collator.CompareString(variants[i].Name, variants[j].Name); c != 0 {
				return c < 0
			}
			return comparePrices(variants[i].SalePrice, variants[j].SalePrice) < 0
		})
		grouping.Brands = append(grouping.Brands, BrandGroup{Brand: brand, Variants: variants})
	}
	return grouping
}

// comparePrices orders sale prices numerically. Prices that do not parse sort
// after every parseable price and compare equal among themselves, so a stable
// sort keeps their input order.
func comparePrices(a, b string) int {
	da, okA := parsePrice(a)
	db, okB := parsePrice(b)
	switch {
	case okA && okB:
		return da.Cmp(db)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

func parsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
