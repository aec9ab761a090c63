package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// rateLimitMiddlewares holds per-endpoint rate limiting middlewares.
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	token gin.HandlerFunc
}

// buildRateLimitRedisClient creates the go-redis client used by the rate
// limiter store. Returns nil when rate limiting is disabled or no Redis
// address is configured, in which case the limiter falls back to its
// per-instance memory store. The rate limiter needs go-redis because
// ulule/limiter's redis driver is built on go-redis types.
func buildRateLimitRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.RateLimitEnabled || cfg.RedisAddr == "" {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Printf("[Bootstrap] Rate limit store: redis (%s, db %d)", cfg.RedisAddr, cfg.RedisDB)
	return client, nil
}

// setupRateLimiting builds the per-endpoint limiters. When rate limiting is
// disabled every middleware is a pass-through.
func setupRateLimiting(cfg *config.Config, redisClient *redis.Client) rateLimitMiddlewares {
	if !cfg.RateLimitEnabled {
		noOp := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{login: noOp, token: noOp}
	}

	if redisClient == nil {
		log.Printf("[Bootstrap] Rate limit store: memory (single instance only)")
	}

	return rateLimitMiddlewares{
		login: newRateLimiter(cfg.LoginRateLimit, redisClient),
		token: newRateLimiter(cfg.TokenRateLimit, redisClient),
	}
}

// newRateLimiter builds a gin middleware from a formatted rate such as "30-M".
func newRateLimiter(formatted string, redisClient *redis.Client) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		log.Fatalf("[Bootstrap] Invalid rate limit %q: %v", formatted, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = limiterRedis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
		if err != nil {
			log.Fatalf("[Bootstrap] Failed to create redis rate limit store: %v", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
		c.Abort()
	}))
}
