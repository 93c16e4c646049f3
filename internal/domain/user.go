package domain

import "time"

// Role represents a user's role in the system
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents an account that owns documents and conversations
type User struct {
	ID        int64
	Username  string
	Role      Role
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanWritePublic reports whether a role may publish to the shared knowledge
// base. Only admins write the public corpus.
func CanWritePublic(r Role) bool {
	return r == RoleAdmin
}

// VisibilityFor returns the visibility assigned to uploads by a role:
// admin uploads feed the global knowledge base, member uploads stay private.
func VisibilityFor(r Role) Visibility {
	if CanWritePublic(r) {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
