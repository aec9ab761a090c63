package services

import (
	"context"
	"testing"
	"time"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospectActiveToken(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	user := env.createUser(t, "alice", "secret", []string{"api.read"})
	client := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, []string{"https://app.example.com/cb"})
	env.saveCode(t, "code-1", client, user, []string{"api.read"})

	ts, err := env.tokens.ExchangeCode(ctx, client, "code-1", "https://app.example.com/cb")
	require.NoError(t, err)

	doc, err := env.intro.Introspect(ctx, ts.AccessToken)
	require.NoError(t, err)

	assert.True(t, doc.Active)
	assert.NotEmpty(t, doc.JTI)
	assert.Equal(t, user.ID, doc.Subject)
	assert.Equal(t, models.GrantAuthorizationCode, doc.GrantType)
	assert.Equal(t, []string{"api.read"}, doc.Scope)
	assert.Greater(t, doc.ExpiresIn, int64(0))
	assert.Equal(t, client.ClientID, doc.Client.ClientID)
	require.NotNil(t, doc.User)
	assert.Equal(t, "alice", doc.User.Username)
}

// Machine tokens have no user dimension: the document carries the client
// but omits the user block.
func TestIntrospectClientTokenOmitsUser(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	client := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, nil)

	ts, err := env.tokens.GrantClientCredentials(ctx, client, []string{"api.read"})
	require.NoError(t, err)

	doc, err := env.intro.Introspect(ctx, ts.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, client.ID, doc.Subject)
	assert.Nil(t, doc.User)
}

func TestIntrospectUnknownToken(t *testing.T) {
	env := setupServices(t)

	raw, err := env.codec.Create("user-1", time.Hour)
	require.NoError(t, err)

	_, err = env.intro.Introspect(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntrospectMalformedToken(t *testing.T) {
	env := setupServices(t)
	_, err := env.intro.Introspect(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// A tampered signature fails introspection even though the identifier still
// resolves to a stored record.
func TestIntrospectTamperedToken(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	client := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, nil)

	ts, err := env.tokens.GrantClientCredentials(ctx, client, []string{"api.read"})
	require.NoError(t, err)

	raw := ts.AccessToken
	tampered := raw[:len(raw)-4] + "AAAA"
	if tampered == raw {
		tampered = raw[:len(raw)-4] + "BBBB"
	}

	_, err = env.intro.Introspect(ctx, tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokePair(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	user := env.createUser(t, "alice", "secret",
		[]string{"api.read", scope.OfflineAccess})
	client := env.createClient(t, false,
		[]string{"api.read", scope.OfflineAccess}, []string{"api.read"},
		[]string{"https://app.example.com/cb"})
	env.saveCode(t, "code-1", client, user, []string{"api.read", scope.OfflineAccess})

	ts, err := env.tokens.ExchangeCode(ctx, client, "code-1", "https://app.example.com/cb")
	require.NoError(t, err)
	require.NotEmpty(t, ts.RefreshToken)

	require.NoError(t, env.intro.Revoke(ctx, ts.AccessToken, ts.RefreshToken))

	// Revocation is final for both halves of the pair
	_, err = env.intro.Introspect(ctx, ts.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.tokens.GrantRefreshToken(ctx, client, ts.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAccessOnly(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	client := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, nil)

	ts, err := env.tokens.GrantClientCredentials(ctx, client, []string{"api.read"})
	require.NoError(t, err)

	require.NoError(t, env.intro.Revoke(ctx, ts.AccessToken, ""))

	_, err = env.intro.Introspect(ctx, ts.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// Revocation is not idempotent: revoking an already-revoked or unknown
// token is an error, not a silent success.
func TestRevokeUnknownToken(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	client := env.createClient(t, false,
		[]string{"api.read"}, []string{"api.read"}, nil)

	ts, err := env.tokens.GrantClientCredentials(ctx, client, []string{"api.read"})
	require.NoError(t, err)

	require.NoError(t, env.intro.Revoke(ctx, ts.AccessToken, ""))
	assert.ErrorIs(t, env.intro.Revoke(ctx, ts.AccessToken, ""), ErrInvalidToken)
}

func TestRevokeNothingSupplied(t *testing.T) {
	env := setupServices(t)
	assert.ErrorIs(t, env.intro.Revoke(context.Background(), "", ""), ErrInvalidToken)
}
