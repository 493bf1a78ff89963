package userapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/provider/userapi"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FindByID(ctx context.Context, userID int64) (*auth.IdentityRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*auth.IdentityRecord)
	return record, args.Error(1)
}

func (m *mockSource) FindByEmail(ctx context.Context, email string) (*auth.IdentityRecord, error) {
	args := m.Called(ctx, email)
	record, _ := args.Get(0).(*auth.IdentityRecord)
	return record, args.Error(1)
}

func quietLogger() auth.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return auth.NewLogrusLogger(l)
}

func serve(t *testing.T, source auth.IdentitySource, apiKey string) *httptest.Server {
	t.Helper()
	app := fiber.New()
	userapi.NewHandler(source, apiKey).WithLogger(quietLogger()).Register(app.Group("/api"))
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL, apiKey string) *userapi.Client {
	t.Helper()
	client, err := userapi.New(userapi.Config{BaseURL: baseURL, APIKey: apiKey, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNew_Validation(t *testing.T) {
	_, err := userapi.New(userapi.Config{})
	assert.Error(t, err)

	_, err = userapi.New(userapi.Config{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = userapi.New(userapi.Config{BaseURL: "http://identity.local/api/"})
	assert.NoError(t, err)
}

func TestClientAndHandler_RoundTrip(t *testing.T) {
	record := &auth.IdentityRecord{
		ID:      1,
		Name:    "Rodrigo",
		Email:   "rodrigo@emagine.com.br",
		IsAdmin: true,
		Active:  true,
		Roles:   []string{"admin"},
	}

	source := new(mockSource)
	source.On("FindByID", mock.Anything, int64(1)).Return(record, nil)
	source.On("FindByID", mock.Anything, int64(999)).Return(nil, auth.ErrIdentityNotFound)
	source.On("FindByEmail", mock.Anything, "rodrigo@emagine.com.br").Return(record, nil)
	source.On("FindByID", mock.Anything, int64(500)).Return(nil, errors.New("db down"))

	srv := serve(t, source, "secret-key")
	client := newClient(t, srv.URL+"/api", "secret-key")
	ctx := context.Background()

	got, err := client.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	got, err = client.FindByEmail(ctx, "rodrigo@emagine.com.br")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	_, err = client.FindByID(ctx, 999)
	assert.True(t, auth.IsIdentityNotFound(err))

	_, err = client.FindByID(ctx, 500)
	require.Error(t, err)
	assert.False(t, auth.IsIdentityNotFound(err))
}

func TestHandler_RequiresAPIKey(t *testing.T) {
	source := new(mockSource)
	srv := serve(t, source, "secret-key")

	_, err := newClient(t, srv.URL+"/api", "wrong").FindByID(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, auth.IsIdentityNotFound(err))

	source.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestHandler_BadInput(t *testing.T) {
	app := fiber.New()
	userapi.NewHandler(new(mockSource), "").WithLogger(quietLogger()).Register(app)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/identities/abc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/identities", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestClient_UnexpectedResponses(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := newClient(t, srv.URL, "").FindByID(context.Background(), 1)
		require.Error(t, err)
		assert.False(t, auth.IsIdentityNotFound(err))
	})

	t.Run("sends api key and paths", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "k", r.Header.Get(userapi.HeaderAPIKey))
			assert.Equal(t, "/v1/identities", r.URL.Path)
			assert.Equal(t, "a+b@example.com", r.URL.Query().Get("email"))
			_, _ = w.Write([]byte(`{"id":3,"email":"a+b@example.com","active":true}`))
		}))
		defer srv.Close()

		got, err := newClient(t, srv.URL+"/v1/", "k").FindByEmail(context.Background(), "a+b@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.True(t, got.Active)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("respects cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newClient(t, srv.URL, "").FindByID(ctx, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRemoteAuthenticatorOverHTTP(t *testing.T) {
	source := new(mockSource)
	source.On("FindByEmail", mock.Anything, "rodrigo@emagine.com.br").
		Return(&auth.IdentityRecord{ID: 1, Email: "rodrigo@emagine.com.br", Active: true}, nil)

	srv := serve(t, source, "")
	client := newClient(t, srv.URL+"/api", "")

	codec, err := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef-test"), "iss", "aud")
	require.NoError(t, err)

	a := auth.NewRemoteAuthenticator(codec.WithLogger(quietLogger()), client).
		WithLogger(quietLogger()).
		WithBypass("dev-token", "rodrigo@emagine.com.br")

	identity, ok := auth.Succeeded(a.Authenticate(context.Background(), "Bearer dev-token"))
	require.True(t, ok)
	assert.Equal(t, int64(1), identity.UserID)
}
