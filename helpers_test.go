package auth_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

const (
	testSigningKey = "0123456789abcdef0123456789abcdef-test"
	testIssuer     = "https://issuer.test"
	testAudience   = "https://api.test"
)

// By default we set an expiration time 1 hour from now
func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func validToken(t *testing.T, sub string) string {
	t.Helper()
	return signToken(t, jwt.SigningMethodHS256, []byte(testSigningKey), validClaims(sub))
}

func quietLogger() auth.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return auth.NewLogrusLogger(l)
}

func newCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte(testSigningKey), testIssuer, testAudience)
	require.NoError(t, err)
	return codec.WithLogger(quietLogger())
}

func requireFailure(t *testing.T, result auth.Result, kind auth.FailureKind) *auth.Failure {
	t.Helper()
	f, ok := auth.Failed(result)
	require.Truef(t, ok, "expected failure %s, got %#v", kind, result)
	require.Equal(t, kind, f.Kind, "message: %s", f.Message)
	return f
}

func requireSuccess(t *testing.T, result auth.Result) auth.Identity {
	t.Helper()
	identity, ok := auth.Succeeded(result)
	if !ok {
		f, _ := auth.Failed(result)
		require.FailNowf(t, "expected success", "got failure %+v", f)
	}
	return identity
}

// MockIdentitySource implements auth.IdentitySource for testing
type MockIdentitySource struct {
	mock.Mock
}

func (m *MockIdentitySource) FindByID(ctx context.Context, userID int64) (*auth.IdentityRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*auth.IdentityRecord)
	return record, args.Error(1)
}

func (m *MockIdentitySource) FindByEmail(ctx context.Context, email string) (*auth.IdentityRecord, error) {
	args := m.Called(ctx, email)
	record, _ := args.Get(0).(*auth.IdentityRecord)
	return record, args.Error(1)
}

type configStub struct {
	signingKey  string
	issuer      string
	audience    string
	strategy    string
	bypassToken string
	bypassEmail string
}

func newConfigStub(strategy string) *configStub {
	return &configStub{
		signingKey:  testSigningKey,
		issuer:      testIssuer,
		audience:    testAudience,
		strategy:    strategy,
		bypassEmail: "rodrigo@emagine.com.br",
	}
}

func (c *configStub) GetSigningKey() string  { return c.signingKey }
func (c *configStub) GetIssuer() string      { return c.issuer }
func (c *configStub) GetAudience() string    { return c.audience }
func (c *configStub) GetStrategy() string    { return c.strategy }
func (c *configStub) GetBypassToken() string { return c.bypassToken }
func (c *configStub) GetBypassEmail() string { return c.bypassEmail }
