package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is an account that can authenticate interactively and grant consent.
// Role holds the user's maximal permitted scope set.
type User struct {
	ID            string      `gorm:"primaryKey"`
	Username      string      `gorm:"index;not null"` // unique among non-deleted rows, enforced by the store
	PasswordHash  string      `gorm:"not null"`
	Name          string
	Role          StringArray `gorm:"type:json"`
	LoginDisabled bool        `gorm:"not null;default:false"`
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// ValidatePassword compares the supplied plaintext password against the stored
// bcrypt hash.
func (u *User) ValidatePassword(password string) bool {
	if len(u.PasswordHash) == 0 || len(password) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (User) TableName() string {
	return "users"
}
