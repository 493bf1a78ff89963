package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

func setupIdentities(t *testing.T) *Identities {
	t.Helper()

	db, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewIdentities(db)
	require.NoError(t, repo.CreateSchema(context.Background()))
	return repo
}

func TestIdentities_CreateAndFind(t *testing.T) {
	repo := setupIdentities(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &IdentityModel{
		Name:    "Rodrigo",
		Email:   "  Rodrigo@Emagine.com.br ",
		Hash:    "epoch-1",
		IsAdmin: true,
		Active:  true,
		Roles:   []string{"admin", "editor"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "rodrigo@emagine.com.br", created.Email)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, &auth.IdentityRecord{
		ID:      created.ID,
		Name:    "Rodrigo",
		Email:   "rodrigo@emagine.com.br",
		Hash:    "epoch-1",
		IsAdmin: true,
		Active:  true,
		Roles:   []string{"admin", "editor"},
	}, byID)

	byEmail, err := repo.FindByEmail(ctx, "RODRIGO@emagine.com.br")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestIdentities_NotFound(t *testing.T) {
	repo := setupIdentities(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, 999)
	require.Error(t, err)
	assert.True(t, auth.IsIdentityNotFound(err))

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, auth.IsIdentityNotFound(err))

	err = repo.SetActive(ctx, 999, false)
	assert.True(t, auth.IsIdentityNotFound(err))
}

func TestIdentities_CreateValidation(t *testing.T) {
	repo := setupIdentities(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, nil)
	assert.Error(t, err)

	_, err = repo.Create(ctx, &IdentityModel{Name: "No Email"})
	assert.Error(t, err)

	_, err = repo.Create(ctx, &IdentityModel{Name: "A", Email: "dup@example.com", Active: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &IdentityModel{Name: "B", Email: "dup@example.com", Active: true})
	assert.Error(t, err)
}

func TestIdentities_Upsert(t *testing.T) {
	repo := setupIdentities(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &IdentityModel{Name: "Ana", Email: "ana@example.com", Active: true})
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, &IdentityModel{
		Name:   "Ana Maria",
		Email:  "ana@example.com",
		Active: true,
		Roles:  []string{"ops"},
	})
	require.NoError(t, err)

	record, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", record.Name)
	assert.Equal(t, []string{"ops"}, record.Roles)
}

func TestIdentities_SetActive(t *testing.T) {
	repo := setupIdentities(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &IdentityModel{Name: "Ana", Email: "ana@example.com", Active: true})
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, created.ID, false))

	record, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, record.Active)
}

func TestIdentities_CancelledContext(t *testing.T) {
	repo := setupIdentities(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByID(ctx, 1)
	require.Error(t, err)
	assert.False(t, auth.IsIdentityNotFound(err))
}
