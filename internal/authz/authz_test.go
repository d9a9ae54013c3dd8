package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bazaarmate/backend/internal/models"
)

func TestAllows(t *testing.T) {
	t.Parallel()

	assert.True(t, Allows(models.RoleSeller, models.RoleSeller, models.RoleAdmin))
	assert.True(t, Allows(models.RoleAdmin, models.RoleSeller, models.RoleAdmin))
	assert.False(t, Allows(models.RoleBuyer, models.RoleSeller, models.RoleAdmin))

	// Empty requirement means any authenticated role passes.
	assert.True(t, Allows(models.RoleBuyer))
}

func TestOwnerOrAdmin(t *testing.T) {
	t.Parallel()

	item := models.CartItem{UserID: 7}

	owner := &models.User{ID: 7, Role: models.RoleBuyer}
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	stranger := &models.User{ID: 8, Role: models.RoleBuyer}

	assert.True(t, OwnerOrAdmin(owner, item))
	assert.True(t, OwnerOrAdmin(admin, item))
	assert.False(t, OwnerOrAdmin(stranger, item))
	assert.False(t, OwnerOrAdmin(nil, item))
}
