package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
)

// RequireCapability answers 403 unless the signed-in staff member's roles
// grant capability. htmx callers also get a toast, since their swap is dropped.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if ok && rbac.HasCapability(user.Roles, capability) {
				next.ServeHTTP(w, r)
				return
			}

			fields := []zap.Field{zap.String("capability", string(capability))}
			if ok {
				fields = append(fields, zap.String("staff_uid", user.UID), zap.Strings("roles", user.Roles))
			}
			observability.FromContext(r.Context()).Info("capability denied", fields...)

			if IsHTMXRequest(r.Context()) {
				Toast(w, "Você não tem permissão para esta ação.", "danger")
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
