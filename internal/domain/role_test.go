package domain

import "testing"

func TestRoleRank(t *testing.T) {
	tests := []struct {
		role Role
		want int
	}{
		{RoleDriver, 1},
		{RoleEmployee, 2},
		{RoleManager, 3},
		{RoleTenantAdmin, 4},
		{RoleSuperadmin, 5},
		{Role("janitor"), 0},
		{Role(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.Rank(); got != tt.want {
				t.Errorf("Rank(%q) = %d, want %d", tt.role, got, tt.want)
			}
		})
	}
}

func TestRoleAtLeast(t *testing.T) {
	if !RoleSuperadmin.AtLeast(RoleDriver) {
		t.Error("superadmin should rank above driver")
	}
	if RoleDriver.AtLeast(RoleEmployee) {
		t.Error("driver should rank below employee")
	}
	if !RoleManager.AtLeast(RoleManager) {
		t.Error("a role should satisfy its own floor")
	}
	if Role("ghost").AtLeast(Role("ghost")) {
		t.Error("unknown roles never satisfy a floor")
	}
}

func TestRequiresTenant(t *testing.T) {
	for _, r := range roleOrder {
		want := r != RoleSuperadmin
		if got := r.RequiresTenant(); got != want {
			t.Errorf("%s.RequiresTenant() = %v, want %v", r, got, want)
		}
	}
}
