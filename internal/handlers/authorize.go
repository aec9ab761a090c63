package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/scope"
	"github.com/cotarr/collab-auth-sub000/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthorizeHandler serves the interactive authorization endpoints. HTML is
// rendered by an external frontend; consent state travels as JSON plus the
// transaction id.
type AuthorizeHandler struct {
	authService  *services.AuthorizationService
	tokenService *services.TokenService
	userService  *services.UserService
}

func NewAuthorizeHandler(
	as *services.AuthorizationService,
	ts *services.TokenService,
	us *services.UserService,
) *AuthorizeHandler {
	return &AuthorizeHandler{
		authService:  as,
		tokenService: ts,
		userService:  us,
	}
}

// parseScopeParam splits a scope request parameter. OAuth 2.0 says
// space-delimited; comma-separated input from hand-edited forms is accepted
// too.
func parseScopeParam(s string) []string {
	if strings.Contains(s, ",") {
		return scope.ParseScopeList(s)
	}
	return strings.Fields(s)
}

// Authorize handles GET /dialog/authorize. Requires an authenticated
// session. Trusted clients skip consent and are redirected immediately;
// everyone else receives the consent document.
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "unauthorized",
		})
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "unauthorized",
		})
		return
	}

	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")
	state := c.Query("state")

	responseType := c.Query("response_type")
	if responseType == "" {
		responseType = models.ResponseTypeCode
	}
	if responseType != models.ResponseTypeCode && responseType != models.ResponseTypeToken {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported_response_type",
		})
		return
	}

	tx, client, err := h.authService.BeginAuthorization(
		c.Request.Context(),
		clientID, redirectURI, responseType, state,
		parseScopeParam(c.Query("scope")),
		user,
	)
	if err != nil {
		// Neither failure may redirect: the redirect target is not trusted.
		switch {
		case errors.Is(err, services.ErrUnknownClient):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unauthorized_client",
			})
		case errors.Is(err, services.ErrRedirectNotRegistered):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             errInvalidRequest,
				"error_description": "redirect_uri is not registered for this client",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "server_error",
			})
		}
		return
	}

	if client.TrustedClient {
		result, err := h.authService.Decide(c.Request.Context(), h.tokenService, tx.ID, user.ID, true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "server_error",
			})
			return
		}
		h.redirectDecision(c, result, tx.State)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": tx.ID,
		"client": gin.H{
			"client_id": client.ClientID,
			"name":      client.Name,
		},
		"scope":        tx.Scope,
		"redirect_uri": tx.RedirectURI,
	})
}

// Decision handles POST /dialog/authorize/decision. A present cancel field
// means deny.
func (h *AuthorizeHandler) Decision(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "unauthorized",
		})
		return
	}

	transactionID := c.PostForm("transaction_id")
	if transactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "transaction_id is required",
		})
		return
	}

	_, cancel := c.GetPostForm("cancel")
	result, err := h.authService.Decide(c.Request.Context(), h.tokenService, transactionID, userID, !cancel)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccessDenied):
			h.redirectError(c, result.RedirectURI, "access_denied", result.Transaction.State)
		case errors.Is(err, services.ErrTransactionNotFound):
			c.JSON(http.StatusForbidden, gin.H{
				"error":             "access_denied",
				"error_description": "transaction not found or expired",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "server_error",
			})
		}
		return
	}

	h.redirectDecision(c, result, result.Transaction.State)
}

// redirectDecision sends the user agent back to the client: query-string
// code for the code flow, fragment-encoded tokens for implicit.
func (h *AuthorizeHandler) redirectDecision(c *gin.Context, result *services.DecisionResult, state string) {
	if result.Tokens != nil {
		frag := url.Values{}
		frag.Set("access_token", result.Tokens.AccessToken)
		frag.Set("token_type", result.Tokens.TokenType)
		frag.Set("expires_in", strconv.FormatInt(result.Tokens.ExpiresIn, 10))
		frag.Set("scope", strings.Join(result.Tokens.Scope, " "))
		if state != "" {
			frag.Set("state", state)
		}
		c.Redirect(http.StatusFound, result.RedirectURI+"#"+frag.Encode())
		return
	}

	query := url.Values{}
	query.Set("code", result.Code)
	if state != "" {
		query.Set("state", state)
	}
	c.Redirect(http.StatusFound, result.RedirectURI+"?"+query.Encode())
}

func (h *AuthorizeHandler) redirectError(c *gin.Context, redirectURI, errCode, state string) {
	query := url.Values{}
	query.Set("error", errCode)
	if state != "" {
		query.Set("state", state)
	}
	c.Redirect(http.StatusFound, redirectURI+"?"+query.Encode())
}
