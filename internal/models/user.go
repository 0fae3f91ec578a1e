package models

// UserRole represents the caller roles the analytics engine understands.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
	RoleParent  UserRole = "PARENT"
)

// Valid returns true when the role is one of the supported analytics roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// Caller is an already verified identity handed to the analytics engine.
type Caller struct {
	UserID string   `json:"user_id" validate:"required"`
	Role   UserRole `json:"role" validate:"required"`
}
