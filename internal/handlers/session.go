package handlers

import (
	"log"
	"net/http"

	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/services"
	"github.com/cotarr/collab-auth-sub000/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionUserKey = "user_id"

// currentUserID returns the authenticated user's id from the cookie session.
func currentUserID(c *gin.Context) (string, bool) {
	session := sessions.Default(c)
	v := session.Get(sessionUserKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// SessionHandler serves interactive login/logout plus the health endpoint.
type SessionHandler struct {
	store       *store.Store
	userService *services.UserService
	metrics     metrics.Recorder
}

func NewSessionHandler(s *store.Store, us *services.UserService, m metrics.Recorder) *SessionHandler {
	return &SessionHandler{
		store:       s,
		userService: us,
		metrics:     m,
	}
}

// Login handles POST /login with form credentials.
func (h *SessionHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "username and password are required",
		})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "unauthorized",
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Printf("[Session] Failed to save session for user=%s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server_error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      user.Username,
	})
}

// Logout handles GET /logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionUserKey) != nil {
		h.metrics.RecordLogout()
	}
	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("[Session] Failed to clear session: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": false,
	})
}

// Health handles GET /health with a database ping.
func (h *SessionHandler) Health(c *gin.Context) {
	if err := h.store.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
