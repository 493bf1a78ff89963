package jwtware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-bearer"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// ErrUnknownResult is reported when an Authenticator returns something
// other than auth.Success or *auth.Failure.
var ErrUnknownResult = goerrors.New("authenticator returned an unknown result", goerrors.CategoryInternal).
	WithTextCode("UNKNOWN_AUTH_RESULT").
	WithCode(goerrors.CodeInternal)

// ValidationListener is invoked after a request has been authenticated but
// before authorization checks.
type ValidationListener func(c *fiber.Ctx, identity auth.Identity) error

type Config struct {
	// Filter skips the middleware when it returns true.
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Authenticator is required.
	Authenticator auth.Authenticator
	// ContextKey is the fiber Locals key holding the auth.Identity.
	ContextKey string
	// TokenLookup is a comma separated list of "<source>:<name>" pairs.
	// Supported sources are header, query and cookie. Query and cookie
	// values carry the bare token.
	TokenLookup string

	// RequireAdmin rejects identities without the admin flag.
	RequireAdmin bool
	// RequiredRole specifies an exact role that must be present
	RequiredRole string
	// RoleChecker replaces the default role membership check.
	RoleChecker func(auth.Identity, string) bool

	// ContextEnricher runs after auth.WithIdentity has stored the identity
	// in the request user context.
	ContextEnricher func(ctx context.Context, identity auth.Identity) context.Context

	// ValidationListeners are invoked after authentication succeeds.
	ValidationListeners []ValidationListener

	Logger auth.Logger
}

// New returns a fiber handler that authenticates every request with the
// configured Authenticator.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		header := ExtractAuthorization(c, extractors)

		var identity auth.Identity
		switch r := cfg.Authenticator.Authenticate(c.UserContext(), header).(type) {
		case auth.Success:
			identity = r.Identity
		case *auth.Failure:
			if r == nil {
				cfg.Logger.Error("authenticator returned a nil failure")
				return cfg.ErrorHandler(c, ErrUnknownResult)
			}
			cfg.Logger.Debug("request authentication failed", "path", c.Path(), "kind", string(r.Kind))
			return cfg.ErrorHandler(c, r)
		default:
			cfg.Logger.Error("unexpected authentication result", "result", fmt.Sprintf("%T", r))
			return cfg.ErrorHandler(c, ErrUnknownResult)
		}

		if err := cfg.runValidationListeners(c, identity); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := performAuthorizationChecks(identity, cfg); err != nil {
			cfg.Logger.Info("request authorization denied", "path", c.Path(), "user_id", identity.UserID)
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, identity)

		ctx := auth.WithIdentity(c.UserContext(), identity)
		if cfg.ContextEnricher != nil {
			ctx = cfg.ContextEnricher(ctx, identity)
		}
		c.SetUserContext(ctx)

		return cfg.SuccessHandler(c)
	}
}

// IdentityFromLocals returns the identity stored by the middleware under key.
// An empty key uses the default "user".
func IdentityFromLocals(c *fiber.Ctx, key ...string) (auth.Identity, bool) {
	k := "user"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	identity, ok := c.Locals(k).(auth.Identity)
	return identity, ok
}

func forbidden(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithTextCode("FORBIDDEN").
		WithCode(goerrors.CodeForbidden)
}

// performAuthorizationChecks performs the admin and role checks using the configured options
func performAuthorizationChecks(identity auth.Identity, cfg Config) error {
	if cfg.RequireAdmin && !identity.IsAdmin {
		return forbidden("access denied: admin required")
	}

	if cfg.RequiredRole == "" {
		return nil
	}

	check := cfg.RoleChecker
	if check == nil {
		check = auth.Identity.HasRole
	}

	if !check(identity, cfg.RequiredRole) {
		return forbidden(fmt.Sprintf("access denied: required role '%s' not found", cfg.RequiredRole))
	}

	return nil
}

// ExtractAuthorization returns the first non empty Authorization value the
// extractors produce, or an empty string.
func ExtractAuthorization(c *fiber.Ctx, extractors []Extractor) string {
	for _, extractor := range extractors {
		if raw := extractor(c); raw != "" {
			return raw
		}
	}
	return ""
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticator == nil {
		panic("AUTH: JWT middleware configuration: Authenticator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NewLogrusLogger(nil)
	}

	return cfg
}

// DefaultErrorHandler renders err as a JSON error body. Authentication
// failures are 401, authorization failures 403.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	rich := ToRichError(err)
	return c.Status(rich.Code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":      rich.Code,
			"text_code": rich.TextCode,
			"message":   rich.Message,
		},
	})
}

// ToRichError converts err into a categorized error with an HTTP status code.
func ToRichError(err error) *goerrors.Error {
	if f, ok := auth.AsFailure(err); ok {
		return f.RichError()
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code == 0 {
			rich = rich.Clone().WithCode(codeForCategory(rich.Category))
		}
		return rich
	}

	var fe *fiber.Error
	if goerrors.As(err, &fe) {
		return goerrors.New(fe.Message, goerrors.HTTPStatusToCategory(fe.Code)).
			WithCode(fe.Code).
			WithTextCode(goerrors.HTTPStatusToTextCode(fe.Code))
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected error occurred").
		WithCode(goerrors.CodeInternal).
		WithTextCode("INTERNAL_ERROR")
}

func codeForCategory(cat goerrors.Category) int {
	switch cat {
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryNotFound:
		return goerrors.CodeNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	default:
		return goerrors.CodeInternal
	}
}

func (cfg *Config) getExtractors() []Extractor {
	return GetExtractors(cfg.TokenLookup)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, identity auth.Identity) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, identity); err != nil {
			return err
		}
	}
	return nil
}

// Extractor returns a value in Authorization header form, or "" when its
// source is absent.
type Extractor func(c *fiber.Ctx) string

func GetExtractors(tokenLookup string) []Extractor {
	extractors := make([]Extractor, 0)

	// header:Authorization,cookie:jwt,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, fromHeader(parts[1]))
		case "query":
			extractors = append(extractors, fromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, fromCookie(parts[1]))
		}
	}

	return extractors
}

// fromHeader returns the raw header value, scheme included.
func fromHeader(header string) Extractor {
	return func(c *fiber.Ctx) string {
		return c.Get(header)
	}
}

// fromQuery wraps a query string token in the bearer scheme.
func fromQuery(param string) Extractor {
	return func(c *fiber.Ctx) string {
		if token := c.Query(param); token != "" {
			return auth.AuthScheme + " " + token
		}
		return ""
	}
}

// fromCookie wraps a cookie token in the bearer scheme.
func fromCookie(name string) Extractor {
	return func(c *fiber.Ctx) string {
		if token := c.Cookies(name); token != "" {
			return auth.AuthScheme + " " + token
		}
		return ""
	}
}
