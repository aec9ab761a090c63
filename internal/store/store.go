// Package store owns persistence for the three token/code record kinds and
// for user/client lookups. Records are keyed by the token identifier (jti)
// extracted from the raw signed token; the raw token itself is never stored.
// In-memory and relational (GORM) backends are interchangeable.
package store

import (
	"errors"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/models"
)

// Token store table names. A single TokenRecord model backs both tables; each
// store instance is bound to one of them.
const (
	TableAccessTokens  = "accesstokens"
	TableRefreshTokens = "refreshtokens"
)

var (
	// ErrNotFound covers both "no such record" and "unparseable raw token":
	// callers must treat the two identically at this layer.
	ErrNotFound = errors.New("record not found")

	ErrUsernameTaken = errors.New("username already in use")
	ErrClientIDTaken = errors.New("client_id already in use")
)

// TokenParams carries the metadata persisted alongside a token identifier.
// The signed token supplies subject and expiry claims; everything else (scope,
// client, grant provenance) lives only in the store.
type TokenParams struct {
	ExpiresAt time.Time
	UserID    *string // nil for client-only (machine) tokens
	ClientID  string
	Scope     []string
	GrantType string
	AuthTime  time.Time
}

// TokenStore persists access- or refresh-token metadata keyed by the token
// identifier embedded in the raw signed token. Find and Delete accept the raw
// token and derive the key internally; a malformed raw token resolves to
// ErrNotFound rather than a distinct error.
type TokenStore interface {
	// Find returns the stored record for a raw signed token.
	Find(rawToken string) (*models.TokenRecord, error)

	// Save persists metadata for a freshly minted raw token. The raw value
	// itself is never written; only its identifier and the params.
	Save(rawToken string, params TokenParams) (*models.TokenRecord, error)

	// Delete removes and returns the prior record. Exactly one of any number
	// of concurrent Delete calls for the same token succeeds; the rest
	// receive ErrNotFound.
	Delete(rawToken string) (*models.TokenRecord, error)

	// RemoveExpired deletes all records past their expiry and returns them.
	RemoveExpired() ([]models.TokenRecord, error)

	// RemoveAll clears the store and returns what was removed.
	RemoveAll() ([]models.TokenRecord, error)
}

// CodeStore persists authorization codes. The code string is the key.
type CodeStore interface {
	Find(code string) (*models.AuthorizationCode, error)
	Save(record *models.AuthorizationCode) (*models.AuthorizationCode, error)

	// Delete removes and returns the prior record; at-most-once consumption
	// relies on the second concurrent Delete observing ErrNotFound.
	Delete(code string) (*models.AuthorizationCode, error)

	RemoveExpired() ([]models.AuthorizationCode, error)
	RemoveAll() ([]models.AuthorizationCode, error)
}
