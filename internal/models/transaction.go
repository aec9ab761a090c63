package models

import "time"

// AuthorizationTransaction is the transient state held between the
// authorization request and the user's consent decision. It lives in the
// transaction cache (keyed by ID), never in the relational store.
type AuthorizationTransaction struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"` // Client.ID, not the public client_id
	RedirectURI  string    `json:"redirect_uri"`
	ResponseType string    `json:"response_type"` // "code" or "token"
	State        string    `json:"state"`         // opaque client value, echoed on redirect
	Scope        []string  `json:"scope"`         // granted scope computed at request time
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Response type constants for the authorization endpoint.
const (
	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
)
