package config

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	auth "github.com/goliatone/go-auth-bearer"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration, decoded from the environment.
type Config struct {
	Auth     Auth
	HTTP     HTTP
	Database Database
	Identity IdentityAPI
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Auth holds the bearer authentication options. *Auth implements auth.Config.
type Auth struct {
	SigningKey  string        `env:"AUTH_SIGNING_KEY"`
	Issuer      string        `env:"AUTH_ISSUER"`
	Audience    string        `env:"AUTH_AUDIENCE"`
	Strategy    string        `env:"AUTH_STRATEGY,default=local"`
	BypassToken string        `env:"AUTH_BYPASS_TOKEN"`
	BypassEmail string        `env:"AUTH_BYPASS_EMAIL,default=rodrigo@emagine.com.br"`
	Environment string        `env:"AUTH_ENVIRONMENT,default=development"`
	ContextKey  string        `env:"AUTH_CONTEXT_KEY,default=user"`
	TokenTTL    time.Duration `env:"AUTH_TOKEN_TTL,default=1h,strict"`
}

type HTTP struct {
	Addr string `env:"HTTP_ADDR,default=:8080"`
}

type Database struct {
	DSN string `env:"DATABASE_DSN,default=file:authd.db?cache=shared"`
}

// IdentityAPI configures the remote identity source. When URL is empty the
// local database is used instead.
type IdentityAPI struct {
	URL     string        `env:"IDENTITY_API_URL"`
	APIKey  string        `env:"IDENTITY_API_KEY"`
	Timeout time.Duration `env:"IDENTITY_API_TIMEOUT,default=5s,strict"`
}

var _ auth.Config = (*Auth)(nil)

// Load decodes the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to decode environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. The returned error is a go-errors
// validation error with one entry per invalid field.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Auth),
		validation.Field(&c.Identity, validation.By(func(any) error {
			return c.Identity.validate(c.Auth.IsProduction())
		})),
		validation.Field(&c.HTTP),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey,
			validation.Required,
			validation.Length(auth.MinSigningKeyLength, 0),
		),
		validation.Field(&a.Issuer, validation.Required),
		validation.Field(&a.Audience, validation.Required),
		validation.Field(&a.Strategy,
			validation.In(string(auth.StrategyLocal), string(auth.StrategyRemote)),
		),
		validation.Field(&a.Environment,
			validation.Required,
			validation.In(EnvDevelopment, EnvProduction),
		),
		validation.Field(&a.BypassToken,
			validation.When(a.Environment == EnvProduction,
				validation.Empty.Error("must not be set in production"),
			),
		),
		validation.Field(&a.BypassEmail,
			validation.When(a.BypassToken != "", validation.Required, is.EmailFormat),
		),
		validation.Field(&a.ContextKey, validation.Required),
		validation.Field(&a.TokenTTL, validation.Min(time.Second)),
	)
}

func (h HTTP) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Addr, validation.Required),
	)
}

// validate checks the identity API options. Production requires an API key
// since it also guards the identities served by authd.
func (i IdentityAPI) validate(production bool) error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.URL, is.URL),
		validation.Field(&i.APIKey,
			validation.When(production, validation.Required.Error("is required in production")),
		),
		validation.Field(&i.Timeout, validation.Min(time.Millisecond)),
	)
}

func validLogLevel(value any) error {
	s, _ := value.(string)
	if _, err := logrus.ParseLevel(s); err != nil {
		return errors.New("must be a valid log level")
	}
	return nil
}

func (a *Auth) GetSigningKey() string  { return a.SigningKey }
func (a *Auth) GetIssuer() string      { return a.Issuer }
func (a *Auth) GetAudience() string    { return a.Audience }
func (a *Auth) GetStrategy() string    { return a.Strategy }
func (a *Auth) GetBypassToken() string { return a.BypassToken }
func (a *Auth) GetBypassEmail() string { return a.BypassEmail }

// IsProduction reports whether the process runs in production.
func (a *Auth) IsProduction() bool { return a.Environment == EnvProduction }
