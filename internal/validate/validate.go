// Package validate holds the credential validators: synchronous predicates
// over already-fetched records. They perform no I/O themselves, which keeps
// them trivially unit-testable; fetching is the caller's responsibility.
package validate

import (
	"errors"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/token"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrLoginDisabled    = errors.New("user login disabled")
	ErrBadCredentials   = errors.New("bad credentials")
	ErrCodeExpired      = errors.New("authorization code expired")
	ErrClientMismatch   = errors.New("client mismatch")
	ErrRedirectMismatch = errors.New("redirect_uri mismatch")
)

// UserExists fails with ErrUserNotFound when the user was not fetched.
func UserExists(user *models.User) error {
	if user == nil {
		return ErrUserNotFound
	}
	return nil
}

// ValidateUser authenticates a user against a supplied plaintext password.
func ValidateUser(user *models.User, password string) error {
	if err := UserExists(user); err != nil {
		return err
	}
	if user.LoginDisabled {
		return ErrLoginDisabled
	}
	if !user.ValidatePassword(password) {
		return ErrBadCredentials
	}
	return nil
}

// ClientExists fails with ErrClientNotFound when the client was not fetched.
func ClientExists(client *models.Client) error {
	if client == nil {
		return ErrClientNotFound
	}
	return nil
}

// ValidateClient authenticates a client against a supplied plaintext secret.
func ValidateClient(client *models.Client, secret string) error {
	if err := ClientExists(client); err != nil {
		return err
	}
	if !client.ValidateClientSecret(secret) {
		return ErrBadCredentials
	}
	return nil
}

// ValidateAuthorizationCode cross-checks a fetched code record against the
// authenticating client and the presented redirect URI.
func ValidateAuthorizationCode(
	record *models.AuthorizationCode,
	client *models.Client,
	redirectURI string,
) error {
	if record.IsExpired() {
		return ErrCodeExpired
	}
	if record.ClientID != client.ID {
		return ErrClientMismatch
	}
	if record.RedirectURI != redirectURI {
		return ErrRedirectMismatch
	}
	return nil
}

// ValidateRefreshToken verifies the raw refresh token's signature and expiry
// via the codec and cross-checks the stored record's client binding.
func ValidateRefreshToken(
	codec *token.Codec,
	record *models.TokenRecord,
	rawToken string,
	client *models.Client,
) error {
	if _, err := codec.Verify(rawToken); err != nil {
		return err
	}
	if record.ClientID != client.ID {
		return ErrClientMismatch
	}
	return nil
}
