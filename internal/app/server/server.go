package server

import (
	"context"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/service"
	inthttp "github.com/ClipsonBusiness/tracking-system-sub000/internal/http/handler"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/http/middleware"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs.
type Dependencies struct {
	Logger        *zap.Logger
	Redis         *redis.Client
	Resolver      service.ResolverService
	Clicks        service.ClickService
	Webhooks      service.WebhookService
	Attribution   service.AttributionService
	Orphans       service.OrphanService
	Links         service.LinkService
	Tenants       repository.TenantRepository
	IDs           *ids.Generator
	CookieDomain  string
	SecureCookies bool
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}

	webhookHandler := inthttp.NewWebhookHandler(inthttp.WebhookDeps{
		Logger:      s.deps.Logger,
		Webhooks:    s.deps.Webhooks,
		Attribution: s.deps.Attribution,
	})
	webhookHandler.Register(s.app)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.Links,
		Tenants:     s.deps.Tenants,
		Orphans:     s.deps.Orphans,
		IDs:         s.deps.IDs,
	})
	apiHandler.Register(s.app)

	// The tracking catch-all must come last.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:        s.deps.Logger,
		Resolver:      s.deps.Resolver,
		Clicks:        s.deps.Clicks,
		CookieDomain:  s.deps.CookieDomain,
		SecureCookies: s.deps.SecureCookies,
	})
	redirectHandler.Register(s.app)
}
