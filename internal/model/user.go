package model

import "time"

// Roles assignable to a user account.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered account with credentials and a role
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"type:varchar(100)"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
