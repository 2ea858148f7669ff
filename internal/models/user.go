package models

import "time"

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is an operator of the courrier register. Users created from Keycloak
// claims carry Sub and no password hash.
type User struct {
	ID           string    `bson:"id" json:"id"`
	Sub          string    `bson:"sub,omitempty" json:"sub,omitempty"` // OIDC subject
	Username     string    `bson:"username" json:"username"`
	FirstName    string    `bson:"firstName" json:"firstName"`
	LastName     string    `bson:"lastName" json:"lastName"`
	Email        string    `bson:"email" json:"email"`
	Role         string    `bson:"role" json:"role"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether u may manage other users.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool { return r == RoleAdmin || r == RoleOperator }
