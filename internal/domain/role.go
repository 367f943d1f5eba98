package domain

// Roles reported by the user directory.
const (
	RoleCustomer = "customer"
	RoleArtist   = "artist"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleArtist, RoleAdmin:
		return true
	}
	return false
}

// UserRef is the directory's answer about a user: whether it exists and which
// role it holds.
type UserRef struct {
	ID     string
	Role   string
	Exists bool
}
