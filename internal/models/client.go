package models

import (
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Client is a registered OAuth 2.0 client application.
// TrustedClient=true clients skip the interactive consent dialog.
type Client struct {
	ID                 string      `gorm:"primaryKey"`
	Name               string      `gorm:"not null"`
	ClientID           string      `gorm:"index;not null"` // unique among non-deleted rows, enforced by the store
	ClientSecret       string      `gorm:"not null"`       // bcrypt hashed secret
	TrustedClient      bool        `gorm:"not null;default:false"`
	AllowedScope       StringArray `gorm:"type:json"`
	DefaultScope       StringArray `gorm:"type:json"`
	AllowedRedirectURI StringArray `gorm:"type:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

// GenerateClientSecret generates a fresh client secret, stores its bcrypt hash
// on the model, and returns the plaintext (shown once at creation time).
func (c *Client) GenerateClientSecret() (string, error) {
	secret, err := util.CryptoRandomString(32)
	if err != nil {
		return "", err
	}
	// Prefix makes leaked secrets easy for code scanners to spot.
	secret = "cas_" + secret

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	c.ClientSecret = string(hashed)
	return secret, nil
}

// ValidateClientSecret validates the given secret by the hash saved in database
func (c *Client) ValidateClientSecret(secret string) bool {
	if len(c.ClientSecret) == 0 || len(secret) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.ClientSecret), []byte(secret)) == nil
}

func (Client) TableName() string {
	return "clients"
}
