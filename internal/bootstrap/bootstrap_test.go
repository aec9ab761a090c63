package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerAddr:             ":0",
		BaseURL:                "http://localhost:3500",
		SessionSecret:          "test-session-secret",
		SessionMaxAge:          3600,
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		AuthCodeExpiration:     10 * time.Minute,
		EnableRefreshTokens:    true,
		DatabaseDriver:         "sqlite",
		DatabaseDSN:            ":memory:",
		TokenStoreBackend:      config.StoreBackendMemory,
		CodeStoreBackend:       config.StoreBackendMemory,
		TransactionTTL:         10 * time.Minute,
		TransactionCacheType:   "memory",
		TokenRateLimit:         "30-M",
		LoginRateLimit:         "10-M",
	}
}

func TestBuildStores(t *testing.T) {
	cfg := testConfig(t)

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	require.NoError(t, err)

	codec, err := token.GenerateCodec(cfg.BaseURL)
	require.NoError(t, err)

	access, refresh := buildTokenStores(cfg, db, codec)
	assert.NotNil(t, access)
	assert.NotNil(t, refresh)

	cfg.TokenStoreBackend = config.StoreBackendDatabase
	access, refresh = buildTokenStores(cfg, db, codec)
	assert.NotNil(t, access)
	assert.NotNil(t, refresh)

	assert.NotNil(t, buildCodeStore(cfg, db))
	cfg.CodeStoreBackend = config.StoreBackendDatabase
	assert.NotNil(t, buildCodeStore(cfg, db))
}

func TestBuildTransactionCacheMemory(t *testing.T) {
	cfg := testConfig(t)
	c, err := buildTransactionCache(cfg)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}

func TestBuildRateLimitRedisClientSkipped(t *testing.T) {
	cfg := testConfig(t)

	// Disabled rate limiting needs no client
	cfg.RateLimitEnabled = false
	client, err := buildRateLimitRedisClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, client)

	// No Redis address means the memory limiter store, regardless of the
	// transaction cache backend
	cfg.RateLimitEnabled = true
	cfg.RedisAddr = ""
	cfg.TransactionCacheType = "redis"
	client, err = buildRateLimitRedisClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestSetupRateLimitingDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.RateLimitEnabled = false

	limiters := setupRateLimiting(cfg, nil)
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.token)

	r := gin.New()
	r.GET("/ping", limiters.token, func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRateLimitingMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.RateLimitEnabled = true
	cfg.TokenRateLimit = "2-M"

	limiters := setupRateLimiting(cfg, nil)

	r := gin.New()
	r.GET("/ping", limiters.token, func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestCreateHTTPServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServerAddr = ":3500"

	srv := createHTTPServer(cfg, gin.New())
	require.NotNil(t, srv)
	assert.Equal(t, ":3500", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
}

func TestApplicationWiring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	app := &Application{Config: cfg}
	require.NoError(t, app.initializeInfrastructure())
	app.initializeServices()
	app.initializeHTTPLayer()

	require.NotNil(t, app.Router)
	require.NotNil(t, app.Server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, app.TransactionCache.Close())
}

func TestSweepExpiredEmptyStores(t *testing.T) {
	cfg := testConfig(t)

	app := &Application{Config: cfg}
	require.NoError(t, app.initializeInfrastructure())

	app.sweepExpired()
}
