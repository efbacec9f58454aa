package domain

import "time"

// Roles a user can hold
const (
	RoleAdmin = "admin" // Catalog administrator
	RoleUser  = "user"  // Regular registered user
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey"`                    // Primary key
	Username  string    `gorm:"uniqueIndex;size:100;not null"` // Unique username
	Password  string    `gorm:"not null" json:"-"`             // Hashed password, never serialized
	Role      string    `gorm:"size:20;default:user"`          // Role: user or admin
	CreatedAt time.Time // Registration time
}

// Identity is the public-safe projection of a User (no credential material)
type Identity struct {
	ID        uint      `json:"id"`        // User ID
	Username  string    `json:"username"`  // Username
	Role      string    `json:"role"`      // User role
	CreatedAt time.Time `json:"createdAt"` // Registration time
}

// Identity returns the public view of the user
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
