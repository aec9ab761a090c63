package models

import "time"

// AuthorizationCode is a short-lived single-use credential issued on a
// successful consent decision and redeemed once at the token endpoint.
// The code string itself is the store key.
type AuthorizationCode struct {
	Code        string      `gorm:"primaryKey"`
	ClientID    string      `gorm:"index;not null"`
	RedirectURI string      `gorm:"not null"`
	UserID      string      `gorm:"index;not null"`
	ExpiresAt   time.Time   `gorm:"index"`
	Scope       StringArray `gorm:"type:json"`
	CreatedAt   time.Time
}

func (a *AuthorizationCode) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

func (AuthorizationCode) TableName() string {
	return "authorizationcodes"
}
