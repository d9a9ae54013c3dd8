package authz

import "github.com/bazaarmate/backend/internal/models"

// Ownable is implemented by every entity that belongs to a single identity.
// The guard depends only on this accessor, never on per-model field names.
type Ownable interface {
	OwnerID() uint
}

// Allows reports whether role is one of the required roles. An empty
// requirement list means any authenticated identity passes.
func Allows(role string, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// OwnerOrAdmin grants access when the acting identity owns the object or
// holds the admin role.
func OwnerOrAdmin(u *models.User, obj Ownable) bool {
	if u == nil {
		return false
	}
	if u.Role == models.RoleAdmin {
		return true
	}
	return obj.OwnerID() == u.ID
}
