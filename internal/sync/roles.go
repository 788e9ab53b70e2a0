package sync

// Collection permission levels understood by Outline.
const (
	PermissionRead      = "read"
	PermissionReadWrite = "read_write"
)

// PermissionForRole translates a Plane project role into the collection
// permission granted on the linked documentation. The role vocabulary is
// owned by Plane and open-ended; anything unrecognized degrades to read-only.
func PermissionForRole(role string) string {
	switch role {
	case "admin", "member":
		return PermissionReadWrite
	case "viewer":
		return PermissionRead
	default:
		return PermissionRead
	}
}
