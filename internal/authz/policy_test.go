package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
)

func TestHasRole(t *testing.T) {
	roles := []ledger.Role{ledger.RoleUser, ledger.RoleAdmin, ledger.RoleSuperadmin}
	for i, actual := range roles {
		for j, required := range roles {
			assert.Equal(t, i >= j, HasRole(actual, required), "%s >= %s", actual, required)
		}
	}
	assert.False(t, HasRole("guest", ledger.RoleUser))
}

func TestAuthenticated(t *testing.T) {
	assert.ErrorIs(t, Authenticated(ledger.Actor{}), errs.ErrUnauthenticated)
	assert.ErrorIs(t, Authenticated(ledger.Actor{ID: uuid.New(), Role: "guest"}), errs.ErrUnauthenticated)
	assert.NoError(t, Authenticated(ledger.Actor{ID: uuid.New(), Role: ledger.RoleUser}))
}

func TestOwnershipRules(t *testing.T) {
	owner := ledger.Actor{ID: uuid.New(), Role: ledger.RoleUser}
	other := ledger.Actor{ID: uuid.New(), Role: ledger.RoleUser}
	admin := ledger.Actor{ID: uuid.New(), Role: ledger.RoleAdmin}

	assert.NoError(t, RequireSelfOrAdmin(owner, owner.ID))
	assert.NoError(t, RequireSelfOrAdmin(admin, owner.ID))
	assert.ErrorIs(t, RequireSelfOrAdmin(other, owner.ID), errs.ErrForbidden)
	assert.ErrorIs(t, RequireSelfOrAdmin(ledger.Actor{}, owner.ID), errs.ErrUnauthenticated)

	assert.NoError(t, RequireSelf(owner, owner.ID))
	assert.ErrorIs(t, RequireSelf(admin, owner.ID), errs.ErrForbidden, "admins get no bypass")
}

func TestRequireRoleAndGrant(t *testing.T) {
	admin := ledger.Actor{ID: uuid.New(), Role: ledger.RoleAdmin}
	super := ledger.Actor{ID: uuid.New(), Role: ledger.RoleSuperadmin}

	assert.NoError(t, RequireRole(admin, ledger.RoleAdmin))
	assert.ErrorIs(t, RequireRole(admin, ledger.RoleSuperadmin), errs.ErrForbidden)
	assert.NoError(t, RequireRole(super, ledger.RoleSuperadmin))

	assert.True(t, CanGrant(admin, ledger.RoleAdmin))
	assert.False(t, CanGrant(admin, ledger.RoleSuperadmin))
	assert.True(t, CanGrant(super, ledger.RoleSuperadmin))
	assert.False(t, CanGrant(super, "root"))
}
