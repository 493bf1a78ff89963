package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// FailureKind tags the reason an authentication attempt failed. The value
// doubles as the text code of the matching rich error.
type FailureKind string

const (
	KindMissingHeader       FailureKind = "MISSING_AUTH_HEADER"
	KindMissingToken        FailureKind = "MISSING_AUTH_TOKEN"
	KindMalformed           FailureKind = "TOKEN_MALFORMED"
	KindInvalidSignature    FailureKind = "TOKEN_INVALID"
	KindExpired             FailureKind = "TOKEN_EXPIRED"
	KindInvalidSubject      FailureKind = "INVALID_SUBJECT"
	KindUserNotFound        FailureKind = "USER_NOT_FOUND"
	KindDefaultUserNotFound FailureKind = "DEFAULT_USER_NOT_FOUND"
	KindLookupError         FailureKind = "IDENTITY_LOOKUP_ERROR"
)

const (
	msgMissingHeader       = "Missing Authorization Header"
	msgMissingToken        = "Missing Authorization Token"
	msgValidationPrefix    = "Error validating token: "
	msgInvalidPrefix       = "Invalid token: "
	msgExpired             = "Token has expired"
	msgInvalidSubject      = "Invalid user ID in token"
	msgUserNotFound        = "User not found or inactive"
	msgDefaultUserNotFound = "Default user not found"
)

// ErrIdentityNotFound is returned by an IdentitySource when no record matches.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrNotConfigured is the cause of failures reported by an authenticator
// built without a codec or an identity source.
var ErrNotConfigured = goerrors.New("authenticator is not configured", goerrors.CategoryInternal).
	WithTextCode("AUTH_NOT_CONFIGURED")

var richFailures = map[FailureKind]*goerrors.Error{
	KindMissingHeader:       authError(msgMissingHeader, KindMissingHeader),
	KindMissingToken:        authError(msgMissingToken, KindMissingToken),
	KindMalformed:           authError("Error validating token", KindMalformed),
	KindInvalidSignature:    authError("Invalid token", KindInvalidSignature),
	KindExpired:             authError(msgExpired, KindExpired),
	KindInvalidSubject:      authError(msgInvalidSubject, KindInvalidSubject),
	KindUserNotFound:        authError(msgUserNotFound, KindUserNotFound),
	KindDefaultUserNotFound: authError(msgDefaultUserNotFound, KindDefaultUserNotFound),
	KindLookupError:         authError("Error validating token", KindLookupError),
}

func authError(message string, kind FailureKind) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(string(kind)).
		WithCode(goerrors.CodeUnauthorized)
}

// Failure is the unsuccessful outcome of an authentication attempt. It is
// also an error so it can travel through error handlers unchanged.
type Failure struct {
	Kind    FailureKind
	Message string
	Cause   error
}

func newFailure(kind FailureKind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Cause: cause}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Is matches another Failure of the same kind.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok || t == nil {
		return false
	}
	return t.Kind == f.Kind && (t.Message == "" || t.Message == f.Message)
}

// RichError converts the failure into a categorized error carrying the
// failure kind as text code and the cause as source.
func (f *Failure) RichError() *goerrors.Error {
	base, ok := richFailures[f.Kind]
	if !ok {
		base = authError(f.Message, f.Kind)
	}
	clone := base.Clone()
	clone.Message = f.Message
	clone.Source = f.Cause
	return clone.WithMetadata(map[string]any{
		"kind": string(f.Kind),
	})
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f, true
	}
	return nil, false
}

// IsIdentityNotFound reports whether err signals a missing identity.
func IsIdentityNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrIdentityNotFound) || goerrors.IsNotFound(err)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == KindExpired
}

// IsMalformedError will check for tokens we could not parse
func IsMalformedError(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == KindMalformed
}
