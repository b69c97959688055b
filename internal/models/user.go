package models

import "time"

// User roles.
const (
	UserRoleMember = "member"
	UserRoleAdmin  = "admin"
)

// User is an account holder. Score is the global rating credited once per
// contest when that contest is finalized.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:member" json:"role"`
	Score        int       `gorm:"not null;default:0" json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
