package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/middleware/jwtware"
	"github.com/goliatone/go-auth-bearer/provider/userapi"
)

type serverDeps struct {
	Authenticator auth.Authenticator
	Identities    auth.IdentitySource
	Gatherer      prometheus.Gatherer
	ContextKey    string
	APIKey        string
	Logger        auth.Logger
}

func newServer(deps serverDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ErrorHandler:          jwtware.DefaultErrorHandler,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.Identities != nil {
		var guards []fiber.Handler
		if deps.APIKey == "" {
			// without a shared key only admins may read identities
			guards = append(guards, jwtware.New(jwtware.Config{
				Authenticator: deps.Authenticator,
				ContextKey:    deps.ContextKey,
				Logger:        deps.Logger,
				RequireAdmin:  true,
			}))
		}
		userapi.NewHandler(deps.Identities, deps.APIKey).
			WithLogger(deps.Logger).
			Register(app, guards...)
	}

	api := app.Group("/api", jwtware.New(jwtware.Config{
		Authenticator: deps.Authenticator,
		ContextKey:    deps.ContextKey,
		Logger:        deps.Logger,
		Filter: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))

	api.Get("/me", func(c *fiber.Ctx) error {
		identity, ok := jwtware.IdentityFromLocals(c, deps.ContextKey)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return c.JSON(identity)
	})

	api.Get("/admin/ping", requireAdmin, func(c *fiber.Ctx) error {
		identity, _ := auth.IdentityFromContext(c.UserContext())
		return c.JSON(fiber.Map{"pong": true, "user_id": identity.UserID})
	})

	return app
}

func requireAdmin(c *fiber.Ctx) error {
	if !auth.IsAdmin(c.UserContext()) {
		return goerrors.New("access denied: admin required", goerrors.CategoryAuthz).
			WithTextCode("FORBIDDEN").
			WithCode(goerrors.CodeForbidden)
	}
	return c.Next()
}
