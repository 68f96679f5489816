// Package authz implements the role hierarchy and the ownership rules that
// gate ledger-mutating operations.
package authz

import (
	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
)

// Level maps a role onto the hierarchy user=1 < admin=2 < superadmin=3.
// Unknown roles have level 0 and satisfy nothing.
func Level(r ledger.Role) int {
	switch r {
	case ledger.RoleUser:
		return 1
	case ledger.RoleAdmin:
		return 2
	case ledger.RoleSuperadmin:
		return 3
	}
	return 0
}

// HasRole reports whether actual is at least required.
func HasRole(actual, required ledger.Role) bool {
	return Level(actual) > 0 && Level(actual) >= Level(required)
}

// Authenticated fails with ErrUnauthenticated when no identity was resolved.
func Authenticated(a ledger.Actor) error {
	if a.IsZero() || Level(a.Role) == 0 {
		return errs.ErrUnauthenticated
	}
	return nil
}

// RequireRole gates admin-only and superadmin-only operations.
func RequireRole(a ledger.Actor, required ledger.Role) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if !HasRole(a.Role, required) {
		return errs.Wrap(errs.ErrForbidden, "requires role "+string(required))
	}
	return nil
}

// RequireSelfOrAdmin allows the owner of a resource, or any admin+.
func RequireSelfOrAdmin(a ledger.Actor, ownerID uuid.UUID) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if a.ID == ownerID || HasRole(a.Role, ledger.RoleAdmin) {
		return nil
	}
	return errs.Wrap(errs.ErrForbidden, "not the owner")
}

// RequireSelf allows only the owner. Admins get no bypass.
func RequireSelf(a ledger.Actor, ownerID uuid.UUID) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if a.ID != ownerID {
		return errs.Wrap(errs.ErrForbidden, "not the owner")
	}
	return nil
}

// CanGrant reports whether a may provision an account with role r.
func CanGrant(a ledger.Actor, r ledger.Role) bool {
	return r.Valid() && Level(r) <= Level(a.Role)
}
