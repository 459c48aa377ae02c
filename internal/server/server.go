// Package server contains the HTTP handlers and wiring for the API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "vista/docs" // swagger docs
	"vista/internal/config"
	"vista/internal/database"
	"vista/internal/identity"
	"vista/internal/middleware"
	"vista/internal/models"
	"vista/internal/observability"
	"vista/internal/repository"
	"vista/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// createTrackLimit bounds track creation per caller and minute.
const createTrackLimit = 30

// Deps are the process-wide resources owned by the composition root.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client // optional
	Verifier identity.Verifier
	Logger   *slog.Logger
	Metrics  *fiberprometheus.FiberPrometheus // optional
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	log            *slog.Logger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	limiter        *middleware.Limiter
	exposeDetails  bool

	authService    *service.AuthService
	trackService   *service.TrackService
	exploreService *service.ExploreService
}

// New creates a Server from already-initialized dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("server: identity verifier is required")
	}
	log := deps.Logger
	if log == nil {
		log = observability.NopLogger()
	}

	opLog := repository.NewOpLogger(log)
	userRepo := repository.NewUserRepository(deps.DB, opLog)
	trackRepo := repository.NewTrackRepository(deps.DB, opLog)

	return &Server{
		config:         deps.Config,
		db:             deps.DB,
		redis:          deps.Redis,
		log:            log,
		promMiddleware: deps.Metrics,
		limiter:        middleware.NewLimiter(deps.Redis, deps.Config.Env, log),
		exposeDetails:  !deps.Config.IsProduction(),
		authService:    service.NewAuthService(deps.Verifier, userRepo, log),
		trackService:   service.NewTrackService(trackRepo, log),
		exploreService: service.NewExploreService(trackRepo, userRepo, log),
	}, nil
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Vista API",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	s.log.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.NewInternalError(err), s.exposeDetails)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(middleware.RequestID())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Propagates request and trace ids into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger(s.log))

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.allowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders:    "X-Request-ID, X-Trace-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Per-IP ceiling for this instance; per-user limits are enforced after
	// authentication.
	app.Use(limiter.New(limiter.Config{
		Max:        s.config.RateLimitPerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.limiter.Bypassed() || s.config.RateLimitPerMinute <= 0
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited.WithLabelValues("global").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))
}

func (s *Server) allowedOrigins() string {
	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		return "http://localhost:5173,http://localhost:3000"
	}
	return origins
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Root)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/health", s.HealthCheck)
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/me", middleware.OptionalAuth(s.authService, s.exposeDetails), s.GetMe)

	authRequired := middleware.AuthRequired(s.authService, s.exposeDetails)
	perUser := s.limiter.Handler("api", s.config.RateLimitPerMinute, time.Minute)

	api.Get("/user/profile", authRequired, perUser, s.GetUserProfile)

	tracks := api.Group("/tracks", authRequired, perUser)
	tracks.Get("/", s.ListTracks)
	tracks.Post("/", s.limiter.Handler("create_track", createTrackLimit, time.Minute), s.CreateTrack)
	tracks.Get("/:id", s.GetTrack)
	tracks.Put("/:id", s.UpdateTrack)
	tracks.Delete("/:id", s.DeleteTrack)

	explore := api.Group("/explore", authRequired, perUser)
	explore.Get("/tracks", s.ExplorePublicTracks)
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.NewApp()
	s.log.Info("Server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, drains in-flight ones and closes the
// database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
			s.log.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		errs = append(errs, err)
		s.log.Error("Error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
			s.log.Error("Error closing redis", slog.String("error", err.Error()))
		}
	}

	s.log.Info("Server shutdown complete")
	return errors.Join(errs...)
}
