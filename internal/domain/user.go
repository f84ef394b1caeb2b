package domain

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleOwner UserRole = "owner"
)

// User is an admin-panel account for a tenant. Widget visitors booking
// slots are not users; only their contact info is stored on the
// reservation itself.
type User struct {
	ID           int64     `json:"id"`
	ClientID     string    `json:"client_id"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
