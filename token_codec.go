package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the shortest HS256 secret the codec accepts.
const MinSigningKeyLength = 32

var signingMethod = jwt.SigningMethodHS256

// TokenCodec parses, verifies and signs HS256 bearer tokens.
type TokenCodec struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
	logger     Logger
}

// NewTokenCodec creates a codec bound to a signing key, issuer and audience.
func NewTokenCodec(signingKey []byte, issuer, audience string) (*TokenCodec, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, goerrors.New(
			fmt.Sprintf("signing key must be at least %d bytes", MinSigningKeyLength),
			goerrors.CategoryValidation,
		)
	}
	if issuer == "" || audience == "" {
		return nil, goerrors.New("issuer and audience are required", goerrors.CategoryValidation)
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	return &TokenCodec{
		signingKey: key,
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
		logger:     defLogger(),
	}, nil
}

// WithLogger sets the codec logger.
func (c *TokenCodec) WithLogger(logger Logger) *TokenCodec {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithClock overrides the time source used for lifetime checks.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Issuer returns the issuer the codec signs and expects.
func (c *TokenCodec) Issuer() string { return c.issuer }

// Audience returns the audience the codec signs and expects.
func (c *TokenCodec) Audience() string { return c.audience }

// Verify parses raw and returns its claims. Every error returned is a
// *Failure of kind Malformed, InvalidSignature, Expired or InvalidSubject.
// A nil codec fails every token as Malformed with ErrNotConfigured as cause.
func (c *TokenCodec) Verify(raw string) (*TokenClaims, error) {
	if c == nil {
		return nil, newFailure(KindMalformed, msgValidationPrefix+ErrNotConfigured.Message, ErrNotConfigured)
	}
	if raw == "" {
		return nil, newFailure(KindMalformed, msgValidationPrefix+"token is empty", jwt.ErrTokenMalformed)
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, c.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	if !token.Valid {
		c.logger.Error("TokenCodec could not validate claims")
		return nil, newFailure(KindMalformed, msgValidationPrefix+"token is not valid", jwt.ErrTokenUnverifiable)
	}

	userID, ok := claims.userID()
	if !ok {
		return nil, newFailure(KindInvalidSubject, msgInvalidSubject, nil)
	}

	tc, err := claims.tokenClaims(userID)
	if err != nil {
		return nil, newFailure(KindMalformed, msgValidationPrefix+err.Error(), err)
	}
	return tc, nil
}

// Sign issues a token for the given claims. Issuer and audience default to
// the codec values when empty.
func (c *TokenCodec) Sign(tc *TokenClaims) (string, error) {
	if tc == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if tc.UserID < 1 {
		return "", goerrors.New("user id must be a positive integer", goerrors.CategoryBadInput)
	}

	claims := newTokenPayload(tc)
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	if len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != signingMethod.Alg() {
		c.logger.Warn("TokenCodec encountered unexpected signing method", "alg", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.signingKey, nil
}

// classifyParseError maps jwt errors onto failure kinds. Expiry is checked
// first so it wins over any other claim error reported alongside it.
func classifyParseError(err error) *Failure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newFailure(KindExpired, msgExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newFailure(KindMalformed, msgValidationPrefix+err.Error(), err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return newFailure(KindInvalidSignature, msgInvalidPrefix+err.Error(), err)
	default:
		return newFailure(KindMalformed, msgValidationPrefix+err.Error(), err)
	}
}
