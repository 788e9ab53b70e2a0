package sync

import "testing"

func TestPermissionForRole(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{"admin", PermissionReadWrite},
		{"member", PermissionReadWrite},
		{"viewer", PermissionRead},
		{"guest", PermissionRead},
		{"", PermissionRead},
		{"Admin", PermissionRead}, // role matching is exact
	}
	for _, tc := range cases {
		if got := PermissionForRole(tc.role); got != tc.want {
			t.Errorf("PermissionForRole(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}
