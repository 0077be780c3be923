package authorization

import "testing"

func TestParseUserRole(t *testing.T) {
	cases := []struct {
		input interface{}
		want  UserRole
		ok    bool
	}{
		{input: "Student", want: RoleStudent, ok: true},
		{input: []byte(" instructor "), want: RoleInstructor, ok: true},
		{input: RoleAdmin, want: RoleAdmin, ok: true},
		{input: "editor", ok: false},
		{input: 42, ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseUserRole(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseUserRole(%v) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRolePermissions(t *testing.T) {
	if !RoleHasPermission(RoleInstructor, PermissionAuthorCourses) {
		t.Fatalf("instructors must be able to author courses")
	}
	if RoleHasPermission(RoleStudent, PermissionAuthorCourses) {
		t.Fatalf("students must not author courses")
	}
	if !RoleHasPermission(RoleAdmin, PermissionReviewCourses) {
		t.Fatalf("admins must review courses")
	}
	if RoleHasPermission(UserRole("guest"), PermissionLearn) {
		t.Fatalf("unknown roles have no permissions")
	}
}

func TestValidRolesSorted(t *testing.T) {
	roles := ValidRoles()
	want := []UserRole{RoleAdmin, RoleInstructor, RoleStudent}
	if len(roles) != len(want) {
		t.Fatalf("expected %d roles, got %d", len(want), len(roles))
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("unexpected role order: %v", roles)
		}
	}
}
