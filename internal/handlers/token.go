package handlers

import (
	"errors"
	"net/http"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/services"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/validate"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidGrant   = "invalid_grant"
	errInvalidClient  = "invalid_client"
	errInvalidRequest = "invalid_request"
)

// TokenHandler serves the client-authenticated OAuth 2.0 endpoints:
// token issuance, introspection, and revocation.
type TokenHandler struct {
	store        *store.Store
	tokenService *services.TokenService
	introService *services.IntrospectionService
}

func NewTokenHandler(
	s *store.Store,
	ts *services.TokenService,
	is *services.IntrospectionService,
) *TokenHandler {
	return &TokenHandler{
		store:        s,
		tokenService: ts,
		introService: is,
	}
}

// authenticateClient resolves and authenticates the requesting client from
// HTTP Basic auth or, failing that, body credentials. On failure it writes
// the invalid_client response (RFC 6749 §5.2: 401 + WWW-Authenticate) and
// returns false.
func (h *TokenHandler) authenticateClient(c *gin.Context) (*models.Client, bool) {
	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok {
		clientID = c.PostForm("client_id")
		clientSecret = c.PostForm("client_secret")
	}

	if clientID == "" {
		h.invalidClient(c)
		return nil, false
	}

	client, err := h.store.GetClientByClientID(clientID)
	if err != nil {
		h.invalidClient(c)
		return nil, false
	}

	if err := validate.ValidateClient(client, clientSecret); err != nil {
		h.invalidClient(c)
		return nil, false
	}

	return client, true
}

func (h *TokenHandler) invalidClient(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="oauth"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": errInvalidClient,
	})
}

// Token handles POST /oauth/token for all non-interactive grant types.
func (h *TokenHandler) Token(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	var ts *services.TokenSet
	var err error

	switch c.PostForm("grant_type") {
	case models.GrantAuthorizationCode:
		code := c.PostForm("code")
		redirectURI := c.PostForm("redirect_uri")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             errInvalidRequest,
				"error_description": "code is required",
			})
			return
		}
		ts, err = h.tokenService.ExchangeCode(c.Request.Context(), client, code, redirectURI)

	case models.GrantPassword:
		username := c.PostForm("username")
		password := c.PostForm("password")
		if username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             errInvalidRequest,
				"error_description": "username and password are required",
			})
			return
		}
		ts, err = h.tokenService.GrantPassword(c.Request.Context(), client, username, password,
			parseScopeParam(c.PostForm("scope")))

	case models.GrantClientCredentials:
		ts, err = h.tokenService.GrantClientCredentials(c.Request.Context(), client,
			parseScopeParam(c.PostForm("scope")))

	case models.GrantRefreshToken:
		refreshToken := c.PostForm("refresh_token")
		if refreshToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             errInvalidRequest,
				"error_description": "refresh_token is required",
			})
			return
		}
		ts, err = h.tokenService.GrantRefreshToken(c.Request.Context(), client, refreshToken)

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "Supported grant types: authorization_code, password, client_credentials, refresh_token",
		})
		return
	}

	if err != nil {
		h.grantError(c, err)
		return
	}

	h.writeTokenSet(c, ts)
}

// grantError collapses every grant failure to a single opaque invalid_grant
// so a caller cannot probe which check failed. Only infrastructure errors
// surface as server_error.
func (h *TokenHandler) grantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, validate.ErrBadCredentials),
		errors.Is(err, validate.ErrLoginDisabled),
		errors.Is(err, validate.ErrUserNotFound):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errInvalidGrant,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server_error",
		})
	}
}

func (h *TokenHandler) writeTokenSet(c *gin.Context, ts *services.TokenSet) {
	body := gin.H{
		"access_token": ts.AccessToken,
		"token_type":   ts.TokenType,
		"expires_in":   ts.ExpiresIn,
		"scope":        ts.Scope,
		"auth_time":    ts.AuthTime.Unix(),
	}
	if ts.RefreshToken != "" {
		body["refresh_token"] = ts.RefreshToken
	}
	c.JSON(http.StatusOK, body)
}

// Introspect handles POST /oauth/introspect.
func (h *TokenHandler) Introspect(c *gin.Context) {
	_, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	rawToken := c.PostForm("access_token")
	if rawToken == "" {
		rawToken = c.PostForm("token")
	}

	doc, err := h.introService.Introspect(c.Request.Context(), rawToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server_error",
		})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Revoke handles POST /oauth/token/revoke. Tokens are revoked singly or as
// a pair; an unknown token is an error, not a silent success.
func (h *TokenHandler) Revoke(c *gin.Context) {
	_, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	accessToken := c.PostForm("access_token")
	refreshToken := c.PostForm("refresh_token")

	if err := h.introService.Revoke(c.Request.Context(), accessToken, refreshToken); err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server_error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
