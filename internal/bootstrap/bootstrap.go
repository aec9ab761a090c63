package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/cotarr/collab-auth-sub000/internal/cache"
	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/handlers"
	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/services"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB               *store.Store
	Codec            *token.Codec
	AccessTokens     store.TokenStore
	RefreshTokens    store.TokenStore
	Codes            store.CodeStore
	TransactionCache cache.Cache[models.AuthorizationTransaction]
	Metrics          metrics.Recorder
	RateLimitRedis   *redis.Client

	// Services
	UserService          *services.UserService
	AuthorizationService *services.AuthorizationService
	TokenService         *services.TokenService
	IntrospectionService *services.IntrospectionService

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// Run initializes every component and blocks until shutdown.
func Run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{Config: cfg}

	if err := app.initializeInfrastructure(); err != nil {
		return err
	}
	app.initializeServices()
	app.initializeHTTPLayer()

	app.startWithGracefulShutdown()
	return nil
}

// initializeInfrastructure sets up the database, signing key, stores, the
// transaction cache, metrics, and the optional Redis client.
func (app *Application) initializeInfrastructure() error {
	cfg := app.Config

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	log.Printf("[Bootstrap] Database ready (driver: %s)", cfg.DatabaseDriver)

	codec, err := token.NewCodecFromFile(cfg.TokenPrivateKeyFile, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.Codec = codec
	if cfg.TokenPrivateKeyFile == "" {
		log.Printf("[Bootstrap] No signing key configured, generated an ephemeral key pair (dev only)")
	}

	app.Metrics = metrics.Init(cfg.MetricsEnabled)

	app.AccessTokens, app.RefreshTokens = buildTokenStores(cfg, db, codec)
	app.Codes = buildCodeStore(cfg, db)

	app.TransactionCache, err = buildTransactionCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize transaction cache: %w", err)
	}

	app.RateLimitRedis, err = buildRateLimitRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limit redis client: %w", err)
	}

	return nil
}

func buildTokenStores(cfg *config.Config, db *store.Store, codec *token.Codec) (store.TokenStore, store.TokenStore) {
	if cfg.TokenStoreBackend == config.StoreBackendMemory {
		log.Printf("[Bootstrap] Token stores: memory")
		return store.NewMemoryTokenStore(codec), store.NewMemoryTokenStore(codec)
	}
	log.Printf("[Bootstrap] Token stores: database")
	return store.NewGormTokenStore(db.DB(), store.TableAccessTokens, codec),
		store.NewGormTokenStore(db.DB(), store.TableRefreshTokens, codec)
}

func buildCodeStore(cfg *config.Config, db *store.Store) store.CodeStore {
	if cfg.CodeStoreBackend == config.StoreBackendDatabase {
		log.Printf("[Bootstrap] Code store: database")
		return store.NewGormCodeStore(db.DB())
	}
	log.Printf("[Bootstrap] Code store: memory")
	return store.NewMemoryCodeStore()
}

func buildTransactionCache(cfg *config.Config) (cache.Cache[models.AuthorizationTransaction], error) {
	if cfg.TransactionCacheType == "redis" {
		log.Printf("[Bootstrap] Transaction cache: redis (%s)", cfg.RedisAddr)
		return cache.NewRueidisCache[models.AuthorizationTransaction](
			context.Background(),
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"txn:",
		)
	}
	log.Printf("[Bootstrap] Transaction cache: memory")
	return cache.NewMemoryCache[models.AuthorizationTransaction](), nil
}

// initializeServices wires the business layer.
func (app *Application) initializeServices() {
	app.UserService = services.NewUserService(app.DB, app.Metrics)
	app.AuthorizationService = services.NewAuthorizationService(
		app.DB, app.Codes, app.TransactionCache, app.Config, app.Metrics)
	app.TokenService = services.NewTokenService(
		app.DB, app.AccessTokens, app.RefreshTokens, app.Codes,
		app.Codec, app.Config, app.Metrics)
	app.IntrospectionService = services.NewIntrospectionService(
		app.DB, app.AccessTokens, app.RefreshTokens, app.Codec, app.Metrics)
}

// initializeHTTPLayer builds the handlers, router, and HTTP server.
func (app *Application) initializeHTTPLayer() {
	sessionHandler := handlers.NewSessionHandler(app.DB, app.UserService, app.Metrics)
	authorizeHandler := handlers.NewAuthorizeHandler(
		app.AuthorizationService, app.TokenService, app.UserService)
	tokenHandler := handlers.NewTokenHandler(app.DB, app.TokenService, app.IntrospectionService)

	app.Router = setupRouter(app.Config, app.Metrics, routerHandlers{
		session:   sessionHandler,
		authorize: authorizeHandler,
		token:     tokenHandler,
	}, app.RateLimitRedis)

	app.Server = createHTTPServer(app.Config, app.Router)
}
