package helpers

import (
	"context"
	"path"
	"strings"

	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/rbac"
)

// BasePath is the admin mount point of the current request.
func BasePath(ctx context.Context) string {
	return cleanRoute(middleware.BasePathFromContext(ctx))
}

// NavActive reports whether the sidebar entry for route is the current page.
// With prefix set, pages below route count too.
func NavActive(ctx context.Context, route string, prefix bool) bool {
	if strings.TrimSpace(route) == "" {
		return false
	}
	current := cleanRoute(middleware.RequestPathFromContext(ctx))
	target := cleanRoute(route)

	switch {
	case current == target:
		return true
	case !prefix || target == "/":
		return false
	default:
		return strings.HasPrefix(current, target+"/")
	}
}

// Can reports whether the signed-in staff member holds every capability.
// No capabilities means the action is unrestricted.
func Can(ctx context.Context, capabilities ...rbac.Capability) bool {
	user, signedIn := middleware.UserFromContext(ctx)
	for _, capability := range capabilities {
		if capability == "" {
			continue
		}
		if !signedIn || !rbac.HasCapability(user.Roles, capability) {
			return false
		}
	}
	return true
}

func cleanRoute(route string) string {
	return path.Clean("/" + strings.TrimSpace(route))
}
