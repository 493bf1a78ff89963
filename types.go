package auth

import (
	"context"
)

// Logger is the logging contract used across the package. Messages are
// followed by key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator validates the raw Authorization header value of a request
// and produces a Result. Implementations never return a nil Result.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) Result
}

// AuthenticatorFunc adapts a function into an Authenticator.
type AuthenticatorFunc func(ctx context.Context, header string) Result

// Authenticate satisfies the Authenticator interface. A nil func fails every
// request as a missing header.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, header string) Result {
	if f == nil {
		return newFailure(KindMissingHeader, msgMissingHeader, nil)
	}
	return f(ctx, header)
}

// IdentitySource is the external identity store consulted by the remote
// strategy. Implementations return ErrIdentityNotFound when no record
// matches, any other error is treated as a lookup failure.
type IdentitySource interface {
	FindByID(ctx context.Context, userID int64) (*IdentityRecord, error)
	FindByEmail(ctx context.Context, email string) (*IdentityRecord, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() string
	GetStrategy() string
	GetBypassToken() string
	GetBypassEmail() string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}
