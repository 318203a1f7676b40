package model

import "github.com/google/uuid"

// Role is the principal's role as issued by the auth service.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleStudent    Role = "Student"
	RoleInstructor Role = "Instructor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleInstructor:
		return true
	}
	return false
}

// User is the read-only view of an account owned by the user service.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
}

// DisplayName joins first and last name the way results are shown.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
