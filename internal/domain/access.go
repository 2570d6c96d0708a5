package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity is the authenticated principal a request acts as.
type Identity struct {
	UserID   uuid.UUID
	Role     Role
	TenantID *uuid.UUID
}

type Capability int

const (
	CapPlatformAdmin Capability = iota + 1
	CapTenantAdmin
	CapManageUsers
	CapManage
	CapApproveExpenses
	CapTenantMember
)

var capabilityNames = map[Capability]string{
	CapPlatformAdmin:   "platform_admin",
	CapTenantAdmin:     "tenant_admin",
	CapManageUsers:     "manage_users",
	CapManage:          "manage",
	CapApproveExpenses: "approve_expenses",
	CapTenantMember:    "tenant_member",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// capabilityMinimum maps rank-gated capabilities to the lowest role allowed.
// CapTenantMember is gated on tenant membership instead of rank.
var capabilityMinimum = map[Capability]Role{
	CapPlatformAdmin:   RoleSuperadmin,
	CapTenantAdmin:     RoleTenantAdmin,
	CapManageUsers:     RoleTenantAdmin,
	CapManage:          RoleManager,
	CapApproveExpenses: RoleManager,
}

// MinimumRole returns the lowest role that holds c, if c is rank-gated.
func MinimumRole(c Capability) (Role, bool) {
	r, ok := capabilityMinimum[c]
	return r, ok
}

const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeInsufficientRole = "INSUFFICIENT_ROLE"
	CodeNoTenant         = "NO_TENANT"
	CodeTenantMismatch   = "TENANT_MISMATCH"
	CodeUnknownCap       = "UNKNOWN_CAPABILITY"
)

// AccessError is returned by the policy checks. It unwraps to
// ErrUnauthenticated or ErrForbidden.
type AccessError struct {
	Code    string
	Message string
	err     error
}

func (e *AccessError) Error() string {
	return e.Code + ": " + e.Message
}

func (e *AccessError) Unwrap() error {
	return e.err
}

func unauthenticated() error {
	return &AccessError{Code: CodeUnauthenticated, Message: "no authenticated identity", err: ErrUnauthenticated}
}

func forbidden(code, msg string) error {
	return &AccessError{Code: code, Message: msg, err: ErrForbidden}
}

// Authorize checks that id holds capability c.
func Authorize(id *Identity, c Capability) error {
	if id == nil {
		return unauthenticated()
	}

	if c == CapTenantMember {
		if id.TenantID == nil {
			return forbidden(CodeNoTenant, "user does not belong to a tenant")
		}
		return nil
	}

	floor, ok := MinimumRole(c)
	if !ok {
		return forbidden(CodeUnknownCap, c.String())
	}
	if !id.Role.AtLeast(floor) {
		return forbidden(CodeInsufficientRole, fmt.Sprintf("%s requires role %s or higher", c, floor))
	}
	return nil
}

// AuthorizeObject checks that id may touch a record owned by tenantID.
// Superadmins cross tenant boundaries.
func AuthorizeObject(id *Identity, tenantID uuid.UUID) error {
	if id == nil {
		return unauthenticated()
	}
	if id.Role == RoleSuperadmin {
		return nil
	}
	if id.TenantID == nil || *id.TenantID != tenantID {
		return forbidden(CodeTenantMismatch, "object belongs to another tenant")
	}
	return nil
}

// Allows is the boolean form of Authorize.
func (id *Identity) Allows(c Capability) bool {
	return Authorize(id, c) == nil
}
