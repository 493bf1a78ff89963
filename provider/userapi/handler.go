package userapi

import (
	"crypto/subtle"
	"strconv"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-bearer"
)

// Handler serves an auth.IdentitySource over HTTP in the shape Client
// consumes.
type Handler struct {
	source auth.IdentitySource
	apiKey string
	logger auth.Logger
}

// NewHandler creates a handler. An empty apiKey leaves the routes open.
func NewHandler(source auth.IdentitySource, apiKey string) *Handler {
	return &Handler{
		source: source,
		apiKey: apiKey,
		logger: auth.NewLogrusLogger(nil),
	}
}

// WithLogger sets the logger.
func (h *Handler) WithLogger(logger auth.Logger) *Handler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Register mounts the identity routes on r. guards run before the API key
// check, e.g. a jwtware handler when no key is configured.
func (h *Handler) Register(r fiber.Router, guards ...fiber.Handler) {
	g := r.Group("/identities", append(guards, h.requireKey)...)
	g.Get("/", h.findByEmail)
	g.Get("/:id", h.findByID)
}

func (h *Handler) requireKey(c *fiber.Ctx) error {
	if h.apiKey == "" {
		return c.Next()
	}
	got := c.Get(HeaderAPIKey)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.apiKey)) != 1 {
		return writeError(c, goerrors.New("invalid API key", goerrors.CategoryAuth).
			WithTextCode("INVALID_API_KEY").
			WithCode(goerrors.CodeUnauthorized))
	}
	return c.Next()
}

func (h *Handler) findByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return writeError(c, goerrors.New("identity id must be a positive integer", goerrors.CategoryBadInput).
			WithTextCode("INVALID_IDENTITY_ID").
			WithCode(goerrors.CodeBadRequest))
	}

	record, err := h.source.FindByID(c.UserContext(), id)
	if err != nil {
		return h.lookupError(c, err)
	}
	return c.JSON(record)
}

func (h *Handler) findByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return writeError(c, goerrors.New("email query parameter is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_EMAIL").
			WithCode(goerrors.CodeBadRequest))
	}

	record, err := h.source.FindByEmail(c.UserContext(), email)
	if err != nil {
		return h.lookupError(c, err)
	}
	return c.JSON(record)
}

func (h *Handler) lookupError(c *fiber.Ctx, err error) error {
	if auth.IsIdentityNotFound(err) {
		return writeError(c, goerrors.New("identity not found", goerrors.CategoryNotFound).
			WithTextCode("IDENTITY_NOT_FOUND").
			WithCode(goerrors.CodeNotFound))
	}
	h.logger.Error("identity lookup failed", "path", c.Path(), "error", err)
	return writeError(c, goerrors.New("identity lookup failed", goerrors.CategoryInternal).
		WithTextCode("INTERNAL_ERROR").
		WithCode(goerrors.CodeInternal))
}

func writeError(c *fiber.Ctx, err *goerrors.Error) error {
	return c.Status(err.Code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":      err.Code,
			"text_code": err.TextCode,
			"message":   err.Message,
		},
	})
}
