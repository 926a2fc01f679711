package domain

import "time"

// Known roles. Any other role value falls back to the minimal
// read-only permission tier.
const (
	RoleAdmin     = "Admin"
	RoleManager   = "Manager"
	RoleResponder = "Responder"
	RoleUser      = "User"
)

// User represents an account. Incident.CreatedBy and
// Incident.AssignedTo are weak references to User; the incident core
// never owns the user lifecycle.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
