package handler

import (
	"context"
	"errors"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/service"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/http/view"
	infraprom "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the tracking handler.
type RedirectDeps struct {
	Logger        *zap.Logger
	Resolver      service.ResolverService
	Clicks        service.ClickService
	CookieDomain  string
	SecureCookies bool
}

// RedirectHandler serves inbound tracked requests: resolve, record the
// click, set the attribution cookies, redirect.
type RedirectHandler struct {
	logger        *zap.Logger
	resolver      service.ResolverService
	clicks        service.ClickService
	cookieDomain  string
	secureCookies bool
}

// NewRedirectHandler creates a tracking handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:        logger,
		resolver:      deps.Resolver,
		clicks:        deps.Clicks,
		cookieDomain:  deps.CookieDomain,
		secureCookies: deps.SecureCookies,
	}
}

// Register wires the tracking routes. The catch-all must be registered
// after every other route on the app.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/*", h.Track)
}

// Health is a simple endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "tracking-system",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Track handles GET on any host/path combination the resolver knows.
// Every resolution miss renders the same generic 404 body; only logs
// tell the branches apart.
func (h *RedirectHandler) Track(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := h.resolver.Resolve(ctx, c.Hostname(), c.Path(), c.Query("ref"))
	if err != nil {
		return h.notFound(c, err)
	}

	// The click write is awaited, but a failure never blocks the
	// visitor: the destination matters more than the analytics row.
	affCode, err := h.clicks.Record(ctx, res.Link, service.ClickRequest{
		IP:              c.IP(),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
		Referrer:        c.Get(fiber.HeaderReferer),
		AffParam:        c.Query("aff"),
		CookieAffiliate: c.Cookies(service.AffiliateCookie),
		UTMSource:       c.Query("utm_source"),
		UTMMedium:       c.Query("utm_medium"),
		UTMCampaign:     c.Query("utm_campaign"),
		HeaderCountry:   headerCountry(c),
		HeaderCity:      c.Get("X-Geo-City"),
	})
	if err != nil {
		h.logger.Error("failed to record click",
			zap.Error(err),
			zap.String("slug", res.Link.Slug))
	}

	if affCode != "" {
		h.setCookie(c, service.AffiliateCookie, affCode)
	}
	h.setCookie(c, service.SlugCookie, res.Link.Slug)

	infraprom.RedirectsServed.WithLabelValues(infraprom.OutcomeOK).Inc()
	return c.Redirect(res.Destination, fiber.StatusFound)
}

func (h *RedirectHandler) notFound(c *fiber.Ctx, err error) error {
	outcome := infraprom.OutcomeNotFound
	switch {
	case errors.Is(err, service.ErrNoSlug):
		h.logger.Debug("tracked request without slug", zap.String("path", c.Path()))
	case errors.Is(err, service.ErrNoDestination):
		outcome = infraprom.OutcomeNoDestination
		h.logger.Warn("link resolved but has no destination", zap.String("path", c.Path()))
	case errors.Is(err, service.ErrLinkDisabled):
		outcome = infraprom.OutcomeDisabled
		h.logger.Debug("disabled link requested", zap.String("path", c.Path()))
	case errors.Is(err, repository.ErrLinkNotFound), errors.Is(err, repository.ErrTenantNotFound):
		h.logger.Debug("tracked request did not resolve",
			zap.String("host", c.Hostname()),
			zap.String("path", c.Path()))
	default:
		outcome = infraprom.OutcomeError
		h.logger.Error("link resolution failed",
			zap.Error(err),
			zap.String("host", c.Hostname()),
			zap.String("path", c.Path()))
	}

	infraprom.RedirectsServed.WithLabelValues(outcome).Inc()
	return c.Status(fiber.StatusNotFound).
		Type("html", "utf-8").
		SendString(view.NotFoundPage())
}

// setCookie writes an attribution cookie: 60-day lifetime, SameSite
// Lax, deliberately not HttpOnly so tenant-side checkout script can
// read and forward it.
func (h *RedirectHandler) setCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Domain:   h.cookieDomain,
		Path:     "/",
		MaxAge:   int(service.CookieTTL.Seconds()),
		Secure:   h.secureCookies,
		HTTPOnly: false,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// headerCountry reads the trusted CDN/proxy geo headers.
func headerCountry(c *fiber.Ctx) string {
	if v := c.Get("CF-IPCountry"); v != "" && v != "XX" {
		return v
	}
	return c.Get("X-Geo-Country")
}
