package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/token"
)

var ErrInvalidToken = errors.New("invalid token")

// Introspection is the document returned for a live access token.
type Introspection struct {
	Active    bool                `json:"active"`
	JTI       string              `json:"jti"`
	Subject   string              `json:"sub"`
	ExpiresAt int64               `json:"exp"`
	IssuedAt  int64               `json:"iat"`
	GrantType string              `json:"grant_type"`
	ExpiresIn int64               `json:"expires_in"`
	AuthTime  int64               `json:"auth_time"`
	Scope     []string            `json:"scope"`
	Client    IntrospectionClient `json:"client"`
	User      *IntrospectionUser  `json:"user,omitempty"`
}

// IntrospectionClient is the client summary embedded in the document.
type IntrospectionClient struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// IntrospectionUser is the user summary embedded in the document. Absent for
// client-only (machine) tokens.
type IntrospectionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// IntrospectionService answers "is this token live, and what does it carry"
// and invalidates tokens ahead of their natural expiry.
type IntrospectionService struct {
	store         *store.Store
	accessTokens  store.TokenStore
	refreshTokens store.TokenStore
	codec         *token.Codec
	metrics       metrics.Recorder
}

func NewIntrospectionService(
	s *store.Store,
	accessTokens, refreshTokens store.TokenStore,
	codec *token.Codec,
	m metrics.Recorder,
) *IntrospectionService {
	return &IntrospectionService{
		store:         s,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		codec:         codec,
		metrics:       m,
	}
}

// Introspect resolves a raw access token to its document. The stored record
// alone is not enough: the signature and expiry must verify, since metadata
// outlives an expired token until the next sweep.
func (s *IntrospectionService) Introspect(ctx context.Context, rawToken string) (*Introspection, error) {
	// 1. Look up stored metadata by the token's embedded identifier
	record, err := s.accessTokens.Find(rawToken)
	if err != nil {
		s.metrics.RecordTokenValidation("invalid")
		s.metrics.RecordIntrospection(false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}

	// 2. Verify signature and expiry
	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		result := "invalid"
		if errors.Is(err, token.ErrExpiredToken) {
			result = "expired"
		}
		s.metrics.RecordTokenValidation(result)
		s.metrics.RecordIntrospection(false)
		return nil, ErrInvalidToken
	}

	// 3. Load the owning client and user for display
	client, err := s.store.GetClientByID(record.ClientID)
	if err != nil {
		s.metrics.RecordIntrospection(false)
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}

	doc := &Introspection{
		Active:    true,
		JTI:       claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Unix(),
		IssuedAt:  claims.IssuedAt.Unix(),
		GrantType: record.GrantType,
		ExpiresIn: int64(time.Until(record.ExpiresAt).Seconds()),
		AuthTime:  record.AuthTime.Unix(),
		Scope:     record.Scope,
		Client: IntrospectionClient{
			ID:       client.ID,
			ClientID: client.ClientID,
			Name:     client.Name,
		},
	}

	if record.UserID != nil {
		user, err := s.store.GetUserByID(*record.UserID)
		if err != nil {
			s.metrics.RecordIntrospection(false)
			return nil, fmt.Errorf("user lookup failed: %w", err)
		}
		doc.User = &IntrospectionUser{
			ID:       user.ID,
			Username: user.Username,
			Name:     user.Name,
		}
	}

	s.metrics.RecordTokenValidation("valid")
	s.metrics.RecordIntrospection(true)
	return doc, nil
}

// Revoke deletes the access token and, when supplied, its refresh token.
// The access token must exist for the call to succeed; a missing refresh
// token after a successful access delete is also an error, so callers learn
// the pair was only partially revoked.
func (s *IntrospectionService) Revoke(ctx context.Context, rawAccessToken, rawRefreshToken string) error {
	if rawAccessToken == "" && rawRefreshToken == "" {
		return ErrInvalidToken
	}

	if rawAccessToken != "" {
		record, err := s.accessTokens.Delete(rawAccessToken)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("access token revocation failed: %w", err)
		}
		s.metrics.RecordTokenRevoked(tokenTypeAccess)
		log.Printf("[Token] Access token revoked client=%s", record.ClientID)
	}

	if rawRefreshToken != "" {
		record, err := s.refreshTokens.Delete(rawRefreshToken)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("refresh token revocation failed: %w", err)
		}
		s.metrics.RecordTokenRevoked(tokenTypeRefresh)
		log.Printf("[Token] Refresh token revoked client=%s", record.ClientID)
	}

	return nil
}
