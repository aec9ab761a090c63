package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/cache"
	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/scope"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/util"

	"github.com/google/uuid"
)

// Length of the random authorization code string.
const authorizationCodeLength = 24

var (
	ErrUnknownClient         = errors.New("unknown client")
	ErrRedirectNotRegistered = errors.New("redirect uri not registered for client")
	ErrAccessDenied          = errors.New("access_denied")
	ErrTransactionNotFound   = errors.New("authorization transaction not found or expired")
)

// AuthorizationService drives the interactive half of the authorization-code
// and implicit grants: validate the request, hold the pending transaction
// across the consent decision, then issue a code (or hand off to the token
// service for implicit).
type AuthorizationService struct {
	store   *store.Store
	codes   store.CodeStore
	cache   cache.Cache[models.AuthorizationTransaction]
	config  *config.Config
	metrics metrics.Recorder
}

func NewAuthorizationService(
	s *store.Store,
	codes store.CodeStore,
	c cache.Cache[models.AuthorizationTransaction],
	cfg *config.Config,
	m metrics.Recorder,
) *AuthorizationService {
	return &AuthorizationService{
		store:   s,
		codes:   codes,
		cache:   c,
		config:  cfg,
		metrics: m,
	}
}

// BeginAuthorization validates an authorization request and stores a pending
// transaction awaiting the user's consent decision. The granted scope is
// negotiated here, once, and carried on the transaction; the consent dialog
// and the eventual code both use this value.
func (s *AuthorizationService) BeginAuthorization(
	ctx context.Context,
	clientID, redirectURI, responseType, state string,
	requestedScope []string,
	user *models.User,
) (*models.AuthorizationTransaction, *models.Client, error) {
	// 1. Resolve the client by its public client_id
	client, err := s.store.GetClientByClientID(clientID)
	if err != nil {
		s.metrics.RecordAuthorizationRequest(resultError)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrUnknownClient
		}
		return nil, nil, fmt.Errorf("client lookup failed: %w", err)
	}

	// 2. The redirect URI must be pre-registered exactly
	if !client.AllowedRedirectURI.Contains(redirectURI) {
		s.metrics.RecordAuthorizationRequest(resultError)
		return nil, nil, ErrRedirectNotRegistered
	}

	// 3. Negotiate the granted scope across client, user, and request
	granted := scope.Negotiate(
		requestedScope,
		client.AllowedScope,
		client.DefaultScope,
		user.Role,
		true,
	)

	// 4. Hold the pending transaction until the consent decision
	tx := models.AuthorizationTransaction{
		ID:           uuid.New().String(),
		ClientID:     client.ID,
		RedirectURI:  redirectURI,
		ResponseType: responseType,
		State:        state,
		Scope:        granted,
		UserID:       user.ID,
		CreatedAt:    time.Now(),
	}
	if err := s.cache.Set(ctx, tx.ID, tx, s.config.TransactionTTL); err != nil {
		s.metrics.RecordAuthorizationRequest(resultError)
		return nil, nil, fmt.Errorf("failed to store authorization transaction: %w", err)
	}

	s.metrics.RecordAuthorizationRequest(resultSuccess)
	return &tx, client, nil
}

// DecisionResult is the outcome of a consent decision. Code is set for the
// authorization-code flow; Tokens is set for the implicit flow.
type DecisionResult struct {
	Code        string
	Tokens      *TokenSet
	RedirectURI string
	Transaction *models.AuthorizationTransaction
}

// Decide consumes a pending transaction and applies the user's decision.
// The transaction is removed from the cache whichever way the decision goes,
// so a replayed transaction_id always fails. Only the user who started the
// transaction may decide it.
func (s *AuthorizationService) Decide(
	ctx context.Context,
	tokenService *TokenService,
	transactionID, userID string,
	allow bool,
) (*DecisionResult, error) {
	// 1. Consume the transaction. A second decision for the same id misses.
	tx, err := s.cache.Take(ctx, transactionID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load authorization transaction: %w", err)
	}

	if tx.UserID != userID {
		return nil, ErrTransactionNotFound
	}

	client, err := s.store.GetClientByID(tx.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}

	// 2. Trusted clients never reach an interactive prompt; the decision is
	// forced to allow regardless of the submitted value.
	decision := "deny"
	if client.TrustedClient {
		allow = true
		decision = "trusted"
	} else if allow {
		decision = "allow"
	}
	s.metrics.RecordAuthorizationDecision(decision)

	if !allow {
		return &DecisionResult{RedirectURI: tx.RedirectURI, Transaction: &tx}, ErrAccessDenied
	}

	// 3. Implicit flow: tokens are issued directly off the decision
	if tx.ResponseType == models.ResponseTypeToken {
		user, err := s.store.GetUserByID(tx.UserID)
		if err != nil {
			return nil, fmt.Errorf("user lookup failed: %w", err)
		}
		tokens, err := tokenService.GrantImplicit(ctx, client, user, tx.Scope)
		if err != nil {
			return nil, err
		}
		return &DecisionResult{
			Tokens:      tokens,
			RedirectURI: tx.RedirectURI,
			Transaction: &tx,
		}, nil
	}

	// 4. Code flow: mint and persist an authorization code
	code, err := util.CryptoRandomString(authorizationCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	record := &models.AuthorizationCode{
		Code:        code,
		ClientID:    client.ID,
		RedirectURI: tx.RedirectURI,
		UserID:      tx.UserID,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(s.config.AuthCodeExpiration),
		Scope:       tx.Scope,
	}
	if _, err := s.codes.Save(record); err != nil {
		return nil, fmt.Errorf("failed to persist authorization code: %w", err)
	}

	log.Printf("[Authorize] Code issued client=%s user=%s", client.ClientID, tx.UserID)
	return &DecisionResult{
		Code:        code,
		RedirectURI: tx.RedirectURI,
		Transaction: &tx,
	}, nil
}
