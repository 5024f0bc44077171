package partials

import (
	"context"

	"finitefield.org/store-admin/internal/admin/navigation"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
)

func visibleItems(ctx context.Context, group navigation.MenuGroup) []navigation.MenuItem {
	if !helpers.Can(ctx, group.Capability) {
		return nil
	}
	var items []navigation.MenuItem
	for _, item := range group.Items {
		if helpers.Can(ctx, item.Capability) {
			items = append(items, item)
		}
	}
	return items
}
