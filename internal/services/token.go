package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/scope"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/token"
	"github.com/cotarr/collab-auth-sub000/internal/validate"
)

const (
	resultSuccess = "success"
	resultError   = "error"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidCode         = errors.New("invalid authorization code")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenSet is the outcome of a successful grant. RefreshToken is empty when
// the grant does not produce one.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // seconds until the access token expires
	Scope        []string
	AuthTime     time.Time
}

// TokenService implements the non-interactive grant paths: code exchange,
// implicit issuance, password, client_credentials, and refresh_token.
// Every path ends in the same issue step; the grants differ only in how the
// subject and scope are established.
type TokenService struct {
	store         *store.Store
	accessTokens  store.TokenStore
	refreshTokens store.TokenStore
	codes         store.CodeStore
	codec         *token.Codec
	config        *config.Config
	metrics       metrics.Recorder
}

func NewTokenService(
	s *store.Store,
	accessTokens, refreshTokens store.TokenStore,
	codes store.CodeStore,
	codec *token.Codec,
	cfg *config.Config,
	m metrics.Recorder,
) *TokenService {
	return &TokenService{
		store:         s,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		codes:         codes,
		codec:         codec,
		config:        cfg,
		metrics:       m,
	}
}

// ExchangeCode redeems an authorization code for tokens. The code is deleted
// before validation: a code that fails any check is already consumed, so it
// cannot be retried with corrected parameters.
func (s *TokenService) ExchangeCode(
	ctx context.Context,
	client *models.Client,
	code, redirectURI string,
) (*TokenSet, error) {
	// 1. Atomically consume the code. Of two concurrent exchanges, exactly
	// one observes the record.
	record, err := s.codes.Delete(code)
	if err != nil {
		s.metrics.RecordCodeExchange(resultError)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	// 2. Validate the consumed record against the authenticating client
	if err := validate.ValidateAuthorizationCode(record, client, redirectURI); err != nil {
		s.metrics.RecordCodeExchange(resultError)
		log.Printf("[Token] Code exchange rejected client=%s: %v", client.ClientID, err)
		return nil, ErrInvalidCode
	}

	s.metrics.RecordCodeExchange(resultSuccess)

	userID := record.UserID
	return s.issue(issueParams{
		UserID:      &userID,
		Client:      client,
		Scope:       record.Scope,
		GrantType:   models.GrantAuthorizationCode,
		AuthTime:    record.CreatedAt,
		WithRefresh: true,
	})
}

// GrantImplicit mints an access token directly off a consent decision.
// No refresh token is ever issued for this grant type.
func (s *TokenService) GrantImplicit(
	ctx context.Context,
	client *models.Client,
	user *models.User,
	requestedScope []string,
) (*TokenSet, error) {
	granted := scope.Negotiate(
		requestedScope,
		client.AllowedScope,
		client.DefaultScope,
		user.Role,
		true,
	)

	return s.issue(issueParams{
		UserID:      &user.ID,
		Client:      client,
		Scope:       granted,
		GrantType:   models.GrantImplicit,
		AuthTime:    time.Now(),
		WithRefresh: false,
	})
}

// GrantPassword implements the resource-owner password grant: the client
// submits the user's credentials directly.
func (s *TokenService) GrantPassword(
	ctx context.Context,
	client *models.Client,
	username, password string,
	requestedScope []string,
) (*TokenSet, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		s.metrics.RecordLogin(false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, validate.ErrBadCredentials
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	if err := validate.ValidateUser(user, password); err != nil {
		s.metrics.RecordLogin(false)
		return nil, err
	}
	s.metrics.RecordLogin(true)

	granted := scope.Negotiate(
		requestedScope,
		client.AllowedScope,
		client.DefaultScope,
		user.Role,
		true,
	)

	return s.issue(issueParams{
		UserID:      &user.ID,
		Client:      client,
		Scope:       granted,
		GrantType:   models.GrantPassword,
		AuthTime:    time.Now(),
		WithRefresh: true,
	})
}

// GrantClientCredentials issues a machine token with no user dimension.
// The record carries a NULL user id and there is never a refresh token
// (no user to re-authenticate as).
func (s *TokenService) GrantClientCredentials(
	ctx context.Context,
	client *models.Client,
	requestedScope []string,
) (*TokenSet, error) {
	granted := scope.Negotiate(
		requestedScope,
		client.AllowedScope,
		client.DefaultScope,
		nil,
		false,
	)

	return s.issue(issueParams{
		UserID:      nil,
		Client:      client,
		Scope:       granted,
		GrantType:   models.GrantClientCredentials,
		AuthTime:    time.Now(),
		WithRefresh: false,
	})
}

// GrantRefreshToken exchanges a live refresh token for a new access token.
// The new token inherits the stored scope and auth time of the original
// grant; the refresh token itself is not rotated and stays usable until its
// own expiry.
func (s *TokenService) GrantRefreshToken(
	ctx context.Context,
	client *models.Client,
	rawRefreshToken string,
) (*TokenSet, error) {
	record, err := s.refreshTokens.Find(rawRefreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("refresh token lookup failed: %w", err)
	}

	if err := validate.ValidateRefreshToken(s.codec, record, rawRefreshToken, client); err != nil {
		s.metrics.RecordTokenRefresh(false)
		log.Printf("[Token] Refresh rejected client=%s: %v", client.ClientID, err)
		return nil, ErrInvalidRefreshToken
	}

	s.metrics.RecordTokenRefresh(true)

	ts, err := s.issue(issueParams{
		UserID:      record.UserID,
		Client:      client,
		Scope:       record.Scope,
		GrantType:   models.GrantRefreshToken,
		AuthTime:    record.AuthTime,
		WithRefresh: false,
	})
	if err != nil {
		return nil, err
	}
	// The caller keeps using the refresh token it already holds.
	ts.RefreshToken = ""
	return ts, nil
}

// issueParams carries what a grant path has established about the subject.
type issueParams struct {
	UserID      *string // nil for machine tokens
	Client      *models.Client
	Scope       []string
	GrantType   string
	AuthTime    time.Time
	WithRefresh bool
}

// issue mints the access token (and refresh token when eligible) and persists
// their metadata. Refresh eligibility is membership of offline_access in the
// granted scope, combined with the administrative enable flag.
func (s *TokenService) issue(p issueParams) (*TokenSet, error) {
	subject := p.Client.ID
	if p.UserID != nil {
		subject = *p.UserID
	}

	accessExpiry := time.Now().Add(s.config.AccessTokenExpiration)
	rawAccess, err := s.codec.Create(subject, s.config.AccessTokenExpiration)
	if err != nil {
		return nil, fmt.Errorf("access token generation failed: %w", err)
	}
	if _, err := s.accessTokens.Save(rawAccess, store.TokenParams{
		ExpiresAt: accessExpiry,
		UserID:    p.UserID,
		ClientID:  p.Client.ID,
		Scope:     p.Scope,
		GrantType: p.GrantType,
		AuthTime:  p.AuthTime,
	}); err != nil {
		return nil, fmt.Errorf("failed to save access token: %w", err)
	}
	s.metrics.RecordTokenIssued(tokenTypeAccess, p.GrantType)

	ts := &TokenSet{
		AccessToken: rawAccess,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(accessExpiry).Seconds()),
		Scope:       p.Scope,
		AuthTime:    p.AuthTime,
	}

	if !p.WithRefresh || !s.config.EnableRefreshTokens ||
		!scope.Contains(p.Scope, scope.OfflineAccess) {
		return ts, nil
	}

	rawRefresh, err := s.codec.Create(subject, s.config.RefreshTokenExpiration)
	if err != nil {
		return nil, fmt.Errorf("refresh token generation failed: %w", err)
	}
	if _, err := s.refreshTokens.Save(rawRefresh, store.TokenParams{
		ExpiresAt: time.Now().Add(s.config.RefreshTokenExpiration),
		UserID:    p.UserID,
		ClientID:  p.Client.ID,
		Scope:     p.Scope,
		GrantType: p.GrantType,
		AuthTime:  p.AuthTime,
	}); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}
	s.metrics.RecordTokenIssued(tokenTypeRefresh, p.GrantType)

	ts.RefreshToken = rawRefresh
	return ts, nil
}
