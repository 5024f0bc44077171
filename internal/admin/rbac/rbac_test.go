package rbac

import "testing"

func TestHasCapabilityMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		roles      []string
		capability Capability
		want       bool
	}{
		{
			name:       "admin manages stores",
			roles:      []string{"admin"},
			capability: CapStoresManage,
			want:       true,
		},
		{
			name:       "admin denied for undefined capability",
			roles:      []string{"admin"},
			capability: Capability("made.up"),
			want:       false,
		},
		{
			name:       "manager edits inventory",
			roles:      []string{"Manager "},
			capability: CapInventoryManage,
			want:       true,
		},
		{
			name:       "manager cannot manage stores",
			roles:      []string{"manager"},
			capability: CapStoresManage,
			want:       false,
		},
		{
			name:       "clerk reads the product list",
			roles:      []string{"clerk"},
			capability: CapProductListView,
			want:       true,
		},
		{
			name:       "clerk cannot edit inventory",
			roles:      []string{"clerk"},
			capability: CapInventoryManage,
			want:       false,
		},
		{
			name:       "unknown role grants nothing",
			roles:      []string{"unknown"},
			capability: CapStoresView,
			want:       false,
		},
		{
			name:       "empty capability defaults to visible",
			roles:      nil,
			capability: Capability(""),
			want:       true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasCapability(tc.roles, tc.capability); got != tc.want {
				t.Fatalf("HasCapability(%v, %q) = %v, want %v", tc.roles, tc.capability, got, tc.want)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	caps := Capabilities([]string{"clerk"})
	if !caps[CapStoresView] || !caps[CapProductListView] {
		t.Fatalf("clerk should view stores and the product list: %v", caps)
	}
	if caps[CapStoresManage] || caps[CapInventoryManage] {
		t.Fatalf("clerk must not manage stores or inventory: %v", caps)
	}
	if got := len(Capabilities([]string{"admin"})); got != 4 {
		t.Fatalf("admin should hold every capability, got %d", got)
	}
	if got := len(Capabilities([]string{"clerk", "manager"})); got != 3 {
		t.Fatalf("roles should combine, got %d", got)
	}
}

func TestPrimaryRole(t *testing.T) {
	t.Parallel()

	role, ok := PrimaryRole([]string{"clerk", " MANAGER", "owner"})
	if !ok || role != RoleManager {
		t.Fatalf("PrimaryRole = %q, %v; want manager", role, ok)
	}
	if role.Label() != "Gerente" {
		t.Fatalf("unexpected label %q", role.Label())
	}
	if _, ok := PrimaryRole([]string{"owner"}); ok {
		t.Fatalf("unknown roles must not resolve")
	}
}
