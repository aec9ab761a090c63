package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *handlerEnv) getAuthorize(t *testing.T, query url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "/dialog/authorize?"+query.Encode(), nil)
	require.NoError(t, err)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAuthorizeRequiresSession(t *testing.T) {
	env := setupHandlerEnv(t)
	w := env.getAuthorize(t, url.Values{"client_id": {"x"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeUnknownClient(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":    {"no-such-client"},
		"redirect_uri": {"https://app.example.com/cb"},
	}, cookies)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unauthorized_client", decodeJSON(t, w)["error"])
}

func TestAuthorizeUnregisteredRedirect(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, _ := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":    {client.ClientID},
		"redirect_uri": {"https://evil.example.com/cb"},
	}, cookies)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeJSON(t, w)["error"])
}

func TestAuthorizeUnsupportedResponseType(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":     {"x"},
		"response_type": {"id_token"},
	}, cookies)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_response_type", decodeJSON(t, w)["error"])
}

// End to end: login, request authorization, consent, exchange the code.
func TestAuthorizationCodeFlow(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, secret := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	// 1. Authorization request returns the consent document
	w := env.getAuthorize(t, url.Values{
		"client_id":     {client.ClientID},
		"redirect_uri":  {"https://app.example.com/cb"},
		"response_type": {"code"},
		"scope":         {"api.read"},
		"state":         {"xyz"},
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	consent := decodeJSON(t, w)
	transactionID := consent["transaction_id"].(string)
	require.NotEmpty(t, transactionID)

	// 2. Allow decision redirects back with a code and the state
	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
	}, nil, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "xyz", loc.Query().Get("state"))
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)

	// 3. Exchange the code for tokens
	w = env.postForm(t, "/oauth/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"https://app.example.com/cb"},
	}, &[2]string{client.ClientID, secret}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeJSON(t, w)["access_token"])

	// 4. The code only works once
	w = env.postForm(t, "/oauth/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"https://app.example.com/cb"},
	}, &[2]string{client.ClientID, secret}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_grant", decodeJSON(t, w)["error"])
}

// A pending consent belongs to the user who started it; a different
// authenticated session cannot approve it.
func TestDecisionOtherUserCannotApprove(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	env.createUser(t, "bob", "secret", []string{"api.read"})
	client, _ := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})

	aliceCookies := env.login(t, "alice", "secret")
	w := env.getAuthorize(t, url.Values{
		"client_id":    {client.ClientID},
		"redirect_uri": {"https://app.example.com/cb"},
		"scope":        {"api.read"},
	}, aliceCookies)
	require.Equal(t, http.StatusOK, w.Code)
	transactionID := decodeJSON(t, w)["transaction_id"].(string)

	bobCookies := env.login(t, "bob", "secret")
	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
	}, nil, bobCookies)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access_denied", decodeJSON(t, w)["error"])
}

func TestDecisionDenyRedirectsWithError(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, _ := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":    {client.ClientID},
		"redirect_uri": {"https://app.example.com/cb"},
		"state":        {"xyz"},
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	transactionID := decodeJSON(t, w)["transaction_id"].(string)

	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
		"cancel":         {"Deny"},
	}, nil, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "access_denied", loc.Query().Get("error"))
	assert.Equal(t, "xyz", loc.Query().Get("state"))
	assert.Empty(t, loc.Query().Get("code"))
}

func TestDecisionReplayFails(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, _ := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":    {client.ClientID},
		"redirect_uri": {"https://app.example.com/cb"},
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	transactionID := decodeJSON(t, w)["transaction_id"].(string)

	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
	}, nil, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
	}, nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Trusted clients never see the consent document.
func TestAuthorizeTrustedClientSkipsConsent(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, _ := env.createClient(t, true,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":    {client.ClientID},
		"redirect_uri": {"https://app.example.com/cb"},
		"state":        {"abc"},
	}, cookies)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Query().Get("code"))
	assert.Equal(t, "abc", loc.Query().Get("state"))
}

// Implicit flow delivers tokens in the URL fragment.
func TestImplicitFlowRedirectsWithFragment(t *testing.T) {
	env := setupHandlerEnv(t)
	env.createUser(t, "alice", "secret", []string{"api.read"})
	client, _ := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	cookies := env.login(t, "alice", "secret")

	w := env.getAuthorize(t, url.Values{
		"client_id":     {client.ClientID},
		"redirect_uri":  {"https://app.example.com/cb"},
		"response_type": {"token"},
		"scope":         {"api.read"},
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	transactionID := decodeJSON(t, w)["transaction_id"].(string)

	w = env.postForm(t, "/dialog/authorize/decision", url.Values{
		"transaction_id": {transactionID},
	}, nil, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	location := w.Header().Get("Location")
	_, frag, found := strings.Cut(location, "#")
	require.True(t, found)
	fragValues, err := url.ParseQuery(frag)
	require.NoError(t, err)
	assert.NotEmpty(t, fragValues.Get("access_token"))
	assert.Equal(t, "Bearer", fragValues.Get("token_type"))
	assert.Empty(t, fragValues.Get("refresh_token"))
}
