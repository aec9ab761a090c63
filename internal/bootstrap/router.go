package bootstrap

import (
	"log"
	"net/http"

	"github.com/cotarr/collab-auth-sub000/internal/config"
	"github.com/cotarr/collab-auth-sub000/internal/handlers"
	"github.com/cotarr/collab-auth-sub000/internal/metrics"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// routerHandlers groups the HTTP handlers mounted on the router.
type routerHandlers struct {
	session   *handlers.SessionHandler
	authorize *handlers.AuthorizeHandler
	token     *handlers.TokenHandler
}

// setupRouter configures the Gin router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	m metrics.Recorder,
	h routerHandlers,
	rateLimitRedisClient *redis.Client,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(m))
	r.Use(gin.Logger(), gin.Recovery())

	setupSessionMiddleware(r, cfg)
	setupMetricsEndpoint(r, cfg)

	rateLimiters := setupRateLimiting(cfg, rateLimitRedisClient)
	setupRoutes(r, h, rateLimiters)

	log.Printf("[Bootstrap] Server listening on %s (base URL: %s)", cfg.ServerAddr, cfg.BaseURL)
	return r
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
}

// setupSessionMiddleware configures cookie-backed session handling.
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("oauth_session", sessionStore))
}

// setupMetricsEndpoint exposes the Prometheus scrape endpoint when enabled.
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if !cfg.MetricsEnabled {
		log.Printf("[Bootstrap] Prometheus metrics disabled")
		return
	}
	log.Printf("[Bootstrap] Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// setupRoutes mounts the application routes.
func setupRoutes(r *gin.Engine, h routerHandlers, rateLimiters rateLimitMiddlewares) {
	r.GET("/health", h.session.Health)

	r.POST("/login", rateLimiters.login, h.session.Login)
	r.GET("/logout", h.session.Logout)

	dialog := r.Group("/dialog")
	{
		dialog.GET("/authorize", h.authorize.Authorize)
		dialog.POST("/authorize/decision", h.authorize.Decision)
	}

	oauth := r.Group("/oauth")
	{
		oauth.POST("/token", rateLimiters.token, h.token.Token)
		oauth.POST("/introspect", rateLimiters.token, h.token.Introspect)
		oauth.POST("/token/revoke", rateLimiters.token, h.token.Revoke)
	}
}
