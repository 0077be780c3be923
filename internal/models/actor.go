package models

import "course-marketplace-backend/internal/authorization"

// Actor is the authenticated caller passed explicitly into every operation.
type Actor struct {
	UserID uint
	Role   authorization.UserRole
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != 0 && a.Role.IsValid()
}

func (a Actor) Can(permission authorization.Permission) bool {
	return a.IsAuthenticated() && authorization.RoleHasPermission(a.Role, permission)
}

func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == authorization.RoleAdmin
}
