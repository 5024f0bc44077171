package navigation

import (
	"strings"

	"finitefield.org/store-admin/internal/admin/rbac"
)

// MenuItem is a single sidebar link.
type MenuItem struct {
	Key         string
	Label       string
	Capability  rbac.Capability
	Href        string
	Pattern     string
	MatchPrefix bool
}

// MenuGroup clusters related links under a heading.
type MenuGroup struct {
	Key        string
	Label      string
	Capability rbac.Capability
	Items      []MenuItem
}

// BuildMenu returns the sidebar structure rooted at basePath.
func BuildMenu(basePath string) []MenuGroup {
	join := func(suffix string) string {
		base := strings.TrimRight(strings.TrimSpace(basePath), "/")
		return base + suffix
	}

	return []MenuGroup{
		{
			Key:   "stores",
			Label: "Lojas",
			Items: []MenuItem{
				{
					Key:         "stores",
					Label:       "Lojas",
					Capability:  rbac.CapStoresView,
					Href:        join("/stores"),
					Pattern:     join("/stores"),
					MatchPrefix: true,
				},
				{
					Key:        "stores-new",
					Label:      "Nova loja",
					Capability: rbac.CapStoresManage,
					Href:       join("/stores/new"),
					Pattern:    join("/stores/new"),
				},
			},
		},
		{
			Key:        "marketing",
			Label:      "Divulgação",
			Capability: rbac.CapProductListView,
			Items: []MenuItem{
				{
					Key:         "product-list",
					Label:       "Lista de produtos",
					Capability:  rbac.CapProductListView,
					Href:        join("/product-list"),
					Pattern:     join("/product-list"),
					MatchPrefix: true,
				},
			},
		},
	}
}
