package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-bearer"
)

func TestIdentityContext(t *testing.T) {
	tests := []struct {
		name      string
		setupCtx  func() context.Context
		wantOK    bool
		wantAdmin bool
		wantRole  bool
	}{
		{
			name:     "empty context",
			setupCtx: context.Background,
		},
		{
			name: "regular identity",
			setupCtx: func() context.Context {
				return auth.WithIdentity(context.Background(), auth.Identity{UserID: 2, Roles: []string{"viewer"}})
			},
			wantOK: true,
		},
		{
			name: "admin editor",
			setupCtx: func() context.Context {
				return auth.WithIdentity(context.Background(), auth.Identity{UserID: 1, IsAdmin: true, Roles: []string{"editor"}})
			},
			wantOK:    true,
			wantAdmin: true,
			wantRole:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.setupCtx()

			_, ok := auth.IdentityFromContext(ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAdmin, auth.IsAdmin(ctx))
			assert.Equal(t, tt.wantRole, auth.HasRole(ctx, "editor"))
		})
	}
}

func TestIdentityFromContext_NilContext(t *testing.T) {
	//nolint:staticcheck
	_, ok := auth.IdentityFromContext(nil)
	assert.False(t, ok)
}
