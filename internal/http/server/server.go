package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"cartscout/internal/auth"
	"cartscout/internal/http/handlers"
	"cartscout/internal/http/views"
	applog "cartscout/internal/log"
	"cartscout/internal/metrics"
	"cartscout/internal/services"
)

const bodyLimit = 1 << 20 // 1 MiB

// Options tunes the parts of the server tests need to poke at.
type Options struct {
	// AuthMax is the number of auth attempts allowed per IP and window.
	AuthMax    int
	AuthWindow time.Duration
	// AccessLog turns on the per-request access line.
	AccessLog bool
}

func DefaultOptions() Options {
	return Options{AuthMax: 20, AuthWindow: 15 * time.Minute, AccessLog: true}
}

// New builds the fiber app with every route mounted. The returned Deps give
// callers access to the services, e.g. for background jobs.
func New(db *sqlx.DB, iss *auth.Issuer, opts Options) (*fiber.App, *handlers.Deps) {
	app := fiber.New(fiber.Config{
		AppName:      "cartscout",
		BodyLimit:    bodyLimit,
		Views:        views.Engine(),
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     `{"ts":"${time}","level":"access","req_id":"${locals:requestid}","ip":"${ip}","method":"${method}","path":"${path}","status":${status},"latency":"${latency}"}` + "\n",
			TimeFormat: time.RFC3339,
			Output:     applog.Writer(),
		}))
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			applog.Error(c, "health.db.fail", err, nil)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "error", "db": "unreachable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	deps := handlers.NewDeps(db, iss)
	mount(app, deps, iss, opts)

	app.Use(func(c *fiber.Ctx) error {
		return handlers.SendError(c, services.NotFound("Route not found"))
	})
	return app, deps
}

func mount(app *fiber.App, d *handlers.Deps, iss *auth.Issuer, opts Options) {
	api := app.Group("/api/v1")

	authLimiter := limiter.New(limiter.Config{
		Max:        opts.AuthMax,
		Expiration: opts.AuthWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|auth"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.auth.hit", nil)
			return handlers.SendError(c, services.RateLimited())
		},
	})
	a := api.Group("/auth")
	a.Post("/register", authLimiter, d.AuthHandler.Register)
	a.Post("/login", authLimiter, d.AuthHandler.Login)
	a.Post("/refresh", authLimiter, d.AuthHandler.Refresh)
	a.Get("/me", handlers.RequireAuth(iss), d.AuthHandler.Me)

	requireAuth := handlers.RequireAuth(iss)

	lists := api.Group("/lists", requireAuth)
	lists.Get("/", d.ListHandler.Index)
	lists.Post("/", d.ListHandler.Create)
	lists.Get("/:id", d.ListHandler.Show)
	lists.Patch("/:id", d.ListHandler.Update)
	lists.Delete("/:id", d.ListHandler.Delete)
	lists.Get("/:id/print", d.ListHandler.Print)
	lists.Get("/:id/stores", d.ListHandler.StoreIDs)
	lists.Put("/:id/stores", d.ListHandler.SetStores)
	lists.Post("/:id/items", d.ListHandler.AddItem)
	lists.Put("/:id/items/order", d.ListHandler.ReorderItems)
	lists.Patch("/:id/items/:itemId", d.ListHandler.UpdateItem)
	lists.Delete("/:id/items/:itemId", d.ListHandler.DeleteItem)

	stores := api.Group("/stores", requireAuth)
	stores.Get("/", d.StoreHandler.Index)
	stores.Get("/favorites", d.StoreHandler.Favorites)
	stores.Post("/favorites", d.StoreHandler.AddFavorite)
	stores.Delete("/favorites/:storeId", d.StoreHandler.RemoveFavorite)

	api.Get("/products/search", requireAuth, d.ProductHandler.Search)
	api.Post("/push/register", requireAuth, d.PushHandler.Register)
}

// errorHandler turns errors that escape handlers (panics caught by recover,
// fiber errors such as 413) into the JSON error envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		var ae *services.AppError
		switch fe.Code {
		case fiber.StatusNotFound:
			ae = services.NotFound("Route not found")
		case fiber.StatusRequestEntityTooLarge:
			ae = &services.AppError{Code: services.CodeValidation, Status: fe.Code, Message: "Request body too large"}
		case fiber.StatusMethodNotAllowed:
			ae = &services.AppError{Code: services.CodeNotFound, Status: fe.Code, Message: "Method not allowed"}
		default:
			if fe.Code < 500 {
				ae = &services.AppError{Code: services.CodeValidation, Status: fe.Code, Message: strings.TrimSpace(fe.Message)}
			}
		}
		if ae != nil {
			applog.Info(c, "server.client_error", map[string]any{"code": fe.Code})
			return handlers.SendError(c, ae)
		}
	}
	applog.Error(c, "server.error", err, nil)
	return handlers.SendError(c, services.Internal())
}
