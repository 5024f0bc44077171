package rbac

import "strings"

// Role is a staff access tier, carried in the "role"/"roles" token claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleClerk   Role = "clerk"
)

// Capability names an action gated in routes and templates.
type Capability string

const (
	CapStoresView      Capability = "stores.view"
	CapStoresManage    Capability = "stores.manage"
	CapInventoryManage Capability = "inventory.manage"
	CapProductListView Capability = "productlist.view"
)

var allCapabilities = []Capability{CapStoresView, CapStoresManage, CapInventoryManage, CapProductListView}

// grants lists what each role may do. Managers run a store's stock but cannot
// create or delete stores; clerks only read.
var grants = map[Role][]Capability{
	RoleAdmin:   allCapabilities,
	RoleManager: {CapStoresView, CapInventoryManage, CapProductListView},
	RoleClerk:   {CapStoresView, CapProductListView},
}

var roleLabels = map[Role]string{
	RoleAdmin:   "Administrador",
	RoleManager: "Gerente",
	RoleClerk:   "Atendente",
}

// ParseRole canonicalises a claim value. Unknown roles report false.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := grants[role]
	return role, ok
}

// Label returns the Portuguese display name of the role.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// PrimaryRole returns the highest known role among userRoles.
func PrimaryRole(userRoles []string) (Role, bool) {
	best, found := Role(""), false
	for _, raw := range userRoles {
		role, ok := ParseRole(raw)
		if !ok {
			continue
		}
		if !found || rank(role) > rank(best) {
			best, found = role, true
		}
	}
	return best, found
}

func rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleClerk:
		return 1
	}
	return 0
}

// HasCapability reports whether any of userRoles grants capability. The empty
// capability is always granted; undefined capabilities never are.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	for _, raw := range userRoles {
		role, ok := ParseRole(raw)
		if !ok {
			continue
		}
		for _, granted := range grants[role] {
			if granted == capability {
				return true
			}
		}
	}
	return false
}

// Capabilities returns the set of capabilities userRoles hold.
func Capabilities(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(allCapabilities))
	for _, capability := range allCapabilities {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}
