package domain

type Role string

const (
	RoleSuperadmin  Role = "superadmin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleManager     Role = "manager"
	RoleEmployee    Role = "employee"
	RoleDriver      Role = "driver"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = RoleEmployee

// roleOrder lists roles from lowest to highest. A role's rank is its
// position + 1, so inserting an intermediate role is a one-line change.
var roleOrder = []Role{
	RoleDriver,
	RoleEmployee,
	RoleManager,
	RoleTenantAdmin,
	RoleSuperadmin,
}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles.
func (r Role) Rank() int {
	for i, role := range roleOrder {
		if role == r {
			return i + 1
		}
	}
	return 0
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r ranks at or above floor.
func (r Role) AtLeast(floor Role) bool {
	return r.Valid() && r.Rank() >= floor.Rank()
}

// RequiresTenant is true for every role except superadmin.
func (r Role) RequiresTenant() bool {
	return r != RoleSuperadmin
}

func (r Role) String() string {
	return string(r)
}
