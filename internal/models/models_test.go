package models

import "testing"

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		name string
		user User
		want bool
	}{
		{name: "plain user", user: User{Role: RoleUser}, want: false},
		{name: "moderator", user: User{Role: RoleModerator}, want: false},
		{name: "admin role", user: User{Role: RoleAdmin}, want: true},
		{name: "admin role mixed case", user: User{Role: "Admin"}, want: true},
		{name: "superuser flag", user: User{Role: RoleUser, Superuser: true}, want: true},
		{name: "staff flag", user: User{Role: RoleModerator, Staff: true}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.IsAdmin(); got != tc.want {
				t.Fatalf("IsAdmin() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsModerator(t *testing.T) {
	if (User{Role: RoleModerator}).IsModerator() != true {
		t.Fatal("expected moderator role to report true")
	}
	if (User{Role: RoleAdmin, Superuser: true}).IsModerator() {
		t.Fatal("admin should not implicitly be a moderator")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleUser, RoleModerator, RoleAdmin} {
		if !ValidRole(role) {
			t.Fatalf("expected %q to be valid", role)
		}
	}
	for _, role := range []string{"", "owner", "ADMIN", "superuser"} {
		if ValidRole(role) {
			t.Fatalf("expected %q to be rejected", role)
		}
	}
}
