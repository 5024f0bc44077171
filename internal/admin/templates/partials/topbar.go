package partials

import (
	"context"
	"strings"

	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/rbac"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
)

// storeChip is the selected store shown in the topbar.
type storeChip struct {
	ID   string
	Name string
}

// selectedStore returns the chip for the session's store when the staff
// member may open product lists.
func selectedStore(ctx context.Context) (storeChip, bool) {
	sess, ok := middleware.SessionFromContext(ctx)
	if !ok || !helpers.Can(ctx, rbac.CapProductListView) {
		return storeChip{}, false
	}
	store, ok := sess.Store()
	if !ok {
		return storeChip{}, false
	}
	name := store.Name
	if name == "" {
		name = "#" + store.ID
	}
	return storeChip{ID: store.ID, Name: name}, true
}

func userDisplay(user *middleware.User) string {
	if display := strings.TrimSpace(user.Email); display != "" {
		return display
	}
	return user.UID
}

func environmentLabel(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return "PRD"
	case "staging", "stg":
		return "STG"
	case "development", "dev", "":
		return "DEV"
	default:
		label := strings.ToUpper(strings.TrimSpace(env))
		if len(label) > 3 {
			label = label[:3]
		}
		return label
	}
}
