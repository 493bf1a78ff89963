package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

func TestMintToken(t *testing.T) {
	codec := newCodec(t)

	identity := auth.Identity{
		UserID:  1,
		Name:    "Rodrigo",
		Email:   "rodrigo@emagine.com.br",
		IsAdmin: true,
		Roles:   []string{"admin"},
	}

	token, expiresAt, err := auth.MintToken(codec, identity, auth.MintOptions{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenTTL), expiresAt, 5*time.Second)

	a := auth.NewLocalAuthenticator(codec).WithLogger(quietLogger())
	got := requireSuccess(t, a.Authenticate(t.Context(), "Bearer "+token))

	assert.Equal(t, identity.UserID, got.UserID)
	assert.Equal(t, identity.Name, got.Name)
	assert.Equal(t, identity.Email, got.Email)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, []string{"admin"}, got.Roles)
}

func TestMintToken_Options(t *testing.T) {
	codec := newCodec(t)

	issuedAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, expiresAt, err := auth.MintToken(codec, auth.Identity{UserID: 8, Roles: []string{"viewer"}}, auth.MintOptions{
		TTL:      10 * time.Minute,
		IssuedAt: issuedAt,
		Roles:    []string{"editor"},
	})
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(10*time.Minute), expiresAt)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, claims.Roles)
	assert.True(t, claims.IssuedAt.Equal(issuedAt))
	assert.NotEmpty(t, claims.ID)
}

func TestMintToken_ShortTTLExpires(t *testing.T) {
	codec := newCodec(t)

	token, _, err := auth.MintToken(codec, auth.Identity{UserID: 8}, auth.MintOptions{
		TTL:      time.Minute,
		IssuedAt: time.Now().Add(-2 * time.Minute),
	})
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestMintToken_InvalidInput(t *testing.T) {
	codec := newCodec(t)

	_, _, err := auth.MintToken(nil, auth.Identity{UserID: 1}, auth.MintOptions{})
	assert.Error(t, err)

	_, _, err = auth.MintToken(codec, auth.Identity{}, auth.MintOptions{})
	assert.Error(t, err)

	_, _, err = auth.MintToken(codec, auth.Identity{UserID: 1}, auth.MintOptions{TTL: -time.Second})
	assert.Error(t, err)
}
