package services

import (
	"testing"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/cache"
	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	store         *store.Store
	accessTokens  store.TokenStore
	refreshTokens store.TokenStore
	codes         store.CodeStore
	cache         cache.Cache[models.AuthorizationTransaction]
	codec         *token.Codec
	config        *config.Config

	users  *UserService
	auth   *AuthorizationService
	tokens *TokenService
	intro  *IntrospectionService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	codec, err := token.GenerateCodec("test")
	require.NoError(t, err)

	cfg := &config.Config{
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		AuthCodeExpiration:     10 * time.Minute,
		EnableRefreshTokens:    true,
		TransactionTTL:         10 * time.Minute,
	}

	env := &testEnv{
		store:         s,
		accessTokens:  store.NewMemoryTokenStore(codec),
		refreshTokens: store.NewMemoryTokenStore(codec),
		codes:         store.NewMemoryCodeStore(),
		cache:         cache.NewMemoryCache[models.AuthorizationTransaction](),
		codec:         codec,
		config:        cfg,
	}

	m := metrics.NewNoopMetrics()
	env.users = NewUserService(s, m)
	env.auth = NewAuthorizationService(s, env.codes, env.cache, cfg, m)
	env.tokens = NewTokenService(s, env.accessTokens, env.refreshTokens, env.codes, codec, cfg, m)
	env.intro = NewIntrospectionService(s, env.accessTokens, env.refreshTokens, codec, m)
	return env
}

func (e *testEnv) createUser(t *testing.T, username, password string, role []string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Name:         "Test " + username,
		Role:         role,
	}
	require.NoError(t, e.store.CreateUser(user))
	return user
}

func (e *testEnv) createClient(t *testing.T, trusted bool, allowed, def, redirects []string) *models.Client {
	t.Helper()

	client := &models.Client{
		ID:                 uuid.New().String(),
		Name:               "Test Client",
		ClientID:           "client-" + uuid.New().String()[:8],
		TrustedClient:      trusted,
		AllowedScope:       allowed,
		DefaultScope:       def,
		AllowedRedirectURI: redirects,
	}
	_, err := client.GenerateClientSecret()
	require.NoError(t, err)
	require.NoError(t, e.store.CreateClient(client))
	return client
}
