package models

import (
	"time"
)

// Grant type constants (RFC 6749)
const (
	GrantAuthorizationCode = "authorization_code"
	GrantImplicit          = "implicit"
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// TokenRecord holds the server-side metadata for an issued access or refresh
// token. The record is keyed by the token's embedded identifier (jti); the raw
// signed token is never persisted. The same model backs both the accesstokens
// and refreshtokens tables (the store binds the table name per instance).
type TokenRecord struct {
	ID        string      `gorm:"primaryKey"` // token identifier (jti)
	UserID    *string     `gorm:"index"`      // nil for client-only (machine) tokens
	ClientID  string      `gorm:"index;not null"`
	ExpiresAt time.Time   `gorm:"index"`
	Scope     StringArray `gorm:"type:json"`
	GrantType string      `gorm:"not null"`
	AuthTime  time.Time
	CreatedAt time.Time
}

func (t *TokenRecord) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsClientToken reports whether the token belongs to a machine client only
// (client_credentials grant), with no user dimension.
func (t *TokenRecord) IsClientToken() bool {
	return t.UserID == nil
}
