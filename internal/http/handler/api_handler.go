package handler

import (
	"context"
	"errors"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/service"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the admin API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Tenants     repository.TenantRepository
	Orphans     service.OrphanService
	IDs         *ids.Generator
}

// APIHandler implements the management API: link and tenant
// administration plus the orphan-conversion surface.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	tenants     repository.TenantRepository
	orphans     service.OrphanService
	ids         *ids.Generator
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		tenants:     deps.Tenants,
		orphans:     deps.Orphans,
		ids:         deps.IDs,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:slug", h.GetLink)
			links.Patch("/:slug", h.UpdateLink)
		}

		tenants := api.Group("/tenants")
		{
			tenants.Post("/", h.CreateTenant)
			tenants.Get("/", h.ListTenants)
		}

		conversions := api.Group("/conversions")
		{
			conversions.Get("/orphans", h.ListOrphans)
			conversions.Get("/orphans/:id/propose", h.ProposeMatch)
			conversions.Post("/orphans/:id/apply", h.ApplyMatch)
		}
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	TenantID    int64   `json:"tenant_id"`
	CampaignID  *int64  `json:"campaign_id,omitempty"`
	Clipper     *string `json:"clipper,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Destination *string `json:"destination,omitempty"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	CampaignID  *int64    `json:"campaign_id,omitempty"`
	Clipper     *string   `json:"clipper,omitempty"`
	Slug        string    `json:"slug"`
	Destination *string   `json:"destination,omitempty"`
	Disabled    bool      `json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
}

func linkResponse(link *model.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		TenantID:    link.TenantID,
		CampaignID:  link.CampaignID,
		Clipper:     link.Clipper,
		Slug:        link.Slug,
		Destination: link.Destination,
		Disabled:    link.Disabled,
		CreatedAt:   link.CreatedAt,
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.TenantID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id is required",
		})
	}

	link, err := h.linkService.CreateLink(userContext(c), service.CreateLinkInput{
		TenantID:    req.TenantID,
		CampaignID:  req.CampaignID,
		Clipper:     req.Clipper,
		Slug:        req.Slug,
		Destination: req.Destination,
	})
	if err != nil {
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(linkResponse(link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.linkService.ListLinks(userContext(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = linkResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:slug
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slug is required",
		})
	}

	link, err := h.linkService.GetLink(userContext(c), slug)
	if err != nil {
		h.logger.Error("failed to get link", zap.Error(err), zap.String("slug", slug))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	}

	return c.JSON(linkResponse(link))
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	CampaignID  *int64  `json:"campaign_id,omitempty"`
	Clipper     *string `json:"clipper,omitempty"`
	Destination *string `json:"destination,omitempty"`
	Disabled    *bool   `json:"disabled,omitempty"`
}

// UpdateLink handles PATCH /api/links/:slug
func (h *APIHandler) UpdateLink(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slug is required",
		})
	}

	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.linkService.UpdateLink(userContext(c), slug, service.UpdateLinkInput{
		CampaignID:  req.CampaignID,
		Clipper:     req.Clipper,
		Destination: req.Destination,
		Disabled:    req.Disabled,
	})
	if err != nil {
		h.logger.Error("failed to update link", zap.Error(err), zap.String("slug", slug))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	}

	return c.JSON(linkResponse(link))
}

// CreateTenantRequest represents the request body for creating a tenant.
type CreateTenantRequest struct {
	Name          string  `json:"name"`
	CustomDomain  *string `json:"custom_domain,omitempty"`
	WebhookSecret *string `json:"webhook_secret,omitempty"`
	AccountID     *string `json:"account_id,omitempty"`
}

// TenantResponse represents a tenant in API responses. The webhook
// secret is never echoed back.
type TenantResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CustomDomain *string   `json:"custom_domain,omitempty"`
	AccountID    *string   `json:"account_id,omitempty"`
	HasSecret    bool      `json:"has_secret"`
	CreatedAt    time.Time `json:"created_at"`
}

func tenantResponse(tenant *model.Tenant) TenantResponse {
	return TenantResponse{
		ID:           tenant.ID,
		Name:         tenant.Name,
		CustomDomain: tenant.CustomDomain,
		AccountID:    tenant.AccountID,
		HasSecret:    tenant.WebhookSecret != nil && *tenant.WebhookSecret != "",
		CreatedAt:    tenant.CreatedAt,
	}
}

// CreateTenant handles POST /api/tenants
func (h *APIHandler) CreateTenant(c *fiber.Ctx) error {
	var req CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	tenant := &model.Tenant{
		ID:            h.ids.Next(),
		Name:          req.Name,
		CustomDomain:  req.CustomDomain,
		WebhookSecret: req.WebhookSecret,
		AccountID:     req.AccountID,
	}
	if err := h.tenants.Create(userContext(c), tenant); err != nil {
		h.logger.Error("failed to create tenant", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create tenant",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(tenantResponse(tenant))
}

// ListTenants handles GET /api/tenants
func (h *APIHandler) ListTenants(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	tenants, err := h.tenants.List(userContext(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list tenants", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list tenants",
		})
	}

	response := make([]TenantResponse, len(tenants))
	for i := range tenants {
		response[i] = tenantResponse(&tenants[i])
	}

	return c.JSON(fiber.Map{
		"tenants": response,
		"count":   len(response),
	})
}

// OrphanResponse represents an unattributed conversion.
type OrphanResponse struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"tenant_id"`
	InvoiceID       string    `json:"invoice_id"`
	AffiliateCode   *string   `json:"affiliate_code,omitempty"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	AttributionMode string    `json:"attribution_mode"`
	PaidAt          time.Time `json:"paid_at"`
}

// ListOrphans handles GET /api/conversions/orphans?tenant=<id>&days=<n>
func (h *APIHandler) ListOrphans(c *fiber.Ctx) error {
	tenantID := int64(c.QueryInt("tenant"))
	if tenantID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant is required",
		})
	}

	days := c.QueryInt("days", 30)
	window := time.Duration(days) * 24 * time.Hour

	orphans, err := h.orphans.ListOrphans(userContext(c), tenantID, window)
	if err != nil {
		h.logger.Error("failed to list orphan conversions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list orphans",
		})
	}

	response := make([]OrphanResponse, len(orphans))
	for i, o := range orphans {
		response[i] = OrphanResponse{
			ID:              o.ID,
			TenantID:        o.TenantID,
			InvoiceID:       o.InvoiceID,
			AffiliateCode:   o.AffiliateCode,
			AmountCents:     o.AmountCents,
			Currency:        o.Currency,
			Status:          o.Status,
			AttributionMode: o.AttributionMode,
			PaidAt:          o.PaidAt,
		}
	}

	return c.JSON(fiber.Map{
		"orphans": response,
		"days":    days,
		"count":   len(response),
	})
}

// ProposeMatch handles GET /api/conversions/orphans/:id/propose
func (h *APIHandler) ProposeMatch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid conversion id",
		})
	}

	click, err := h.orphans.Propose(userContext(c), int64(id))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoCandidateClick):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no candidate click in window",
			})
		case errors.Is(err, service.ErrAlreadyAttributed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "conversion already attributed",
			})
		case errors.Is(err, repository.ErrConversionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "conversion not found",
			})
		}
		h.logger.Error("failed to propose match", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to propose match",
		})
	}

	return c.JSON(fiber.Map{
		"click_id":       click.ID,
		"link_id":        click.LinkID,
		"affiliate_code": click.AffiliateCode,
		"clicked_at":     click.ClickedAt,
		"country":        click.Country,
		"referrer":       click.Referrer,
	})
}

// ApplyMatchRequest carries the operator's chosen click.
type ApplyMatchRequest struct {
	ClickID int64 `json:"click_id"`
}

// ApplyMatch handles POST /api/conversions/orphans/:id/apply
func (h *APIHandler) ApplyMatch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid conversion id",
		})
	}

	var req ApplyMatchRequest
	if err := c.BodyParser(&req); err != nil || req.ClickID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "click_id is required",
		})
	}

	if err := h.orphans.Apply(userContext(c), int64(id), req.ClickID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConversionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "conversion not found",
			})
		case errors.Is(err, service.ErrClickMismatch):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "click does not match conversion",
			})
		}
		h.logger.Error("failed to apply match", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to apply match",
		})
	}

	return c.JSON(fiber.Map{"applied": true})
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
