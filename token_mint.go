package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used by MintToken when no TTL is given.
const DefaultTokenTTL = time.Hour

// MintOptions controls how MintToken issues a token.
type MintOptions struct {
	// TTL overrides DefaultTokenTTL.
	TTL time.Duration
	// IssuedAt overrides the issuance time. Zero uses time.Now().
	IssuedAt time.Time
	// Roles sets the repeatable role claim.
	Roles []string
}

// MintToken signs a token for identity using the codec issuer and audience.
// It returns the token and its expiration time.
func MintToken(codec *TokenCodec, identity Identity, opts MintOptions) (string, time.Time, error) {
	if codec == nil {
		return "", time.Time{}, goerrors.New("token codec is required", goerrors.CategoryBadInput)
	}
	if identity.UserID < 1 {
		return "", time.Time{}, goerrors.New("identity user id must be a positive integer", goerrors.CategoryBadInput)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if ttl < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	expiresAt := issuedAt.Add(ttl)

	roles := opts.Roles
	if len(roles) == 0 {
		roles = identity.Roles
	}

	token, err := codec.Sign(&TokenClaims{
		UserID:    identity.UserID,
		Name:      identity.Name,
		Email:     identity.Email,
		Hash:      identity.Hash,
		IsAdmin:   identity.IsAdmin,
		Roles:     roles,
		ID:        uuid.NewString(),
		IssuedAt:  issuedAt,
		NotBefore: issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}
