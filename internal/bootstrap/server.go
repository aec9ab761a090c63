package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/config"

	"github.com/appleboy/graceful"
)

// createHTTPServer creates the HTTP server instance.
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown runs the server and background jobs until a
// termination signal arrives, then drains everything in order.
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	app.addExpirySweepJob(m)

	addServerShutdownJob(m, app.Server)
	app.addStorageShutdownJobs(m)

	<-m.Done()
}

// addServerRunningJob adds the HTTP server running job.
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addExpirySweepJob adds the periodic cleanup of expired tokens and codes.
func (app *Application) addExpirySweepJob(m *graceful.Manager) {
	interval := app.Config.SweepInterval
	if interval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				app.sweepExpired()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// sweepExpired removes expired records from every store and records counts.
func (app *Application) sweepExpired() {
	if removed, err := app.AccessTokens.RemoveExpired(); err != nil {
		log.Printf("[Sweep] Failed to remove expired access tokens: %v", err)
	} else if len(removed) > 0 {
		log.Printf("[Sweep] Removed %d expired access tokens", len(removed))
		app.Metrics.RecordSweep("accesstokens", len(removed))
	}

	if removed, err := app.RefreshTokens.RemoveExpired(); err != nil {
		log.Printf("[Sweep] Failed to remove expired refresh tokens: %v", err)
	} else if len(removed) > 0 {
		log.Printf("[Sweep] Removed %d expired refresh tokens", len(removed))
		app.Metrics.RecordSweep("refreshtokens", len(removed))
	}

	if removed, err := app.Codes.RemoveExpired(); err != nil {
		log.Printf("[Sweep] Failed to remove expired authorization codes: %v", err)
	} else if len(removed) > 0 {
		log.Printf("[Sweep] Removed %d expired authorization codes", len(removed))
		app.Metrics.RecordSweep("authorizationcodes", len(removed))
	}
}

// addServerShutdownJob adds the HTTP server shutdown handler.
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addStorageShutdownJobs closes the transaction cache and the rate limit
// Redis client after the server has drained.
func (app *Application) addStorageShutdownJobs(m *graceful.Manager) {
	m.AddShutdownJob(func() error {
		if err := app.TransactionCache.Close(); err != nil {
			log.Printf("Error closing transaction cache: %v", err)
			return err
		}
		return nil
	})

	if app.RateLimitRedis != nil {
		m.AddShutdownJob(func() error {
			log.Println("Closing Redis connection...")
			if err := app.RateLimitRedis.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
				return err
			}
			return nil
		})
	}
}
