package authorization

import (
	"sort"
	"strings"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleStudent    UserRole = "student"
)

var validRoles = map[UserRole]struct{}{
	RoleAdmin:      {},
	RoleInstructor: {},
	RoleStudent:    {},
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

type Permission string

const (
	PermissionLearn          Permission = "learn"
	PermissionAuthorCourses  Permission = "author_courses"
	PermissionReviewCourses  Permission = "review_courses"
	PermissionManageCatalog  Permission = "manage_catalog"
	PermissionViewStatistics Permission = "view_statistics"
)

// Instructors can also enroll in other instructors' courses.
var rolePermissions = map[UserRole]map[Permission]struct{}{
	RoleAdmin: {
		PermissionReviewCourses:  {},
		PermissionManageCatalog:  {},
		PermissionViewStatistics: {},
	},
	RoleInstructor: {
		PermissionLearn:         {},
		PermissionAuthorCourses: {},
	},
	RoleStudent: {
		PermissionLearn: {},
	},
}

func RoleHasPermission(role UserRole, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

func ParseUserRole(value interface{}) (UserRole, bool) {
	var raw string
	switch v := value.(type) {
	case UserRole:
		raw = string(v)
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return "", false
	}

	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", false
	}
	return role, true
}

func ValidRoles() []UserRole {
	roles := make([]UserRole, 0, len(validRoles))
	for role := range validRoles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
