package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/swiftship/swiftship/internal/auth"
	"github.com/swiftship/swiftship/internal/config"
	"github.com/swiftship/swiftship/internal/identity"
	"github.com/swiftship/swiftship/internal/middleware"
	"github.com/swiftship/swiftship/internal/notification"
	"github.com/swiftship/swiftship/internal/otp"
	"github.com/swiftship/swiftship/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// or Redis in dev, in-memory stores take their place.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	var otpStore otp.Store
	if d.Cache != nil {
		otpStore = otp.NewRedisStore(d.Cache)
	} else {
		otpStore = otp.NewMemoryStore()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	otpSvc := otp.NewService(d.Cfg, otpStore, notifier, d.Logger)
	tokens := token.NewIssuer(d.Cfg)
	authSvc := auth.NewService(d.Cfg, identityRepo, otpSvc, tokens, d.Logger)
	authHandler := auth.NewHandler(authSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.AuthRateLimit(d.Cache, d.Cfg.AuthRatePerMinute)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	jwtmw := middleware.JWTAuth(tokens, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Get("/auth/me", authHandler.Me)

	return nil
}
