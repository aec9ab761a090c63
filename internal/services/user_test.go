package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	env.createUser(t, "alice", "secret", []string{"api.read"})

	user, err := env.users.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// Successful login stamps last_login
	stored, err := env.store.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}

// All failure modes collapse to the same error.
func TestAuthenticateFailures(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	user := env.createUser(t, "alice", "secret", []string{"api.read"})

	_, err := env.users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user.LoginDisabled = true
	require.NoError(t, env.store.UpdateUser(user))
	_, err = env.users.Authenticate(ctx, "alice", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
