package service

import (
	"context"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/geo"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	infraprom "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/prometheus"
	"github.com/mssola/useragent"
	"go.uber.org/zap"
)

// Cookie names and lifetime for the attribution cookies set on every
// redirect. Both are readable by tenant-side script (not HttpOnly): the
// slug cookie is how a cooperating checkout forwards the link identity.
const (
	AffiliateCookie = "aff_code"
	SlugCookie      = "ref_slug"
	CookieTTL       = 60 * 24 * time.Hour
)

// ClickRequest carries everything the recorder reads off an inbound
// tracked request.
type ClickRequest struct {
	IP              string
	UserAgent       string
	Referrer        string
	AffParam        string // ?aff= query value
	CookieAffiliate string // existing affiliate cookie, if any
	UTMSource       string
	UTMMedium       string
	UTMCampaign     string
	HeaderCountry   string // trusted CDN/proxy geo headers
	HeaderCity      string
}

// ClickService records click facts for resolved links.
type ClickService interface {
	// Record persists a click and returns the affiliate code that won
	// precedence (empty when none). The caller must still redirect on
	// error: destination availability outranks analytics completeness.
	Record(ctx context.Context, link *model.Link, req ClickRequest) (string, error)
}

type clickService struct {
	clicks  repository.ClickRepository
	locator geo.Locator
	hasher  *IPHasher
	ids     *ids.Generator
	logger  *zap.Logger
}

// NewClickService builds the click recorder.
func NewClickService(clicks repository.ClickRepository, locator geo.Locator, hasher *IPHasher, gen *ids.Generator, logger *zap.Logger) ClickService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickService{
		clicks:  clicks,
		locator: locator,
		hasher:  hasher,
		ids:     gen,
		logger:  logger,
	}
}

func (s *clickService) Record(ctx context.Context, link *model.Link, req ClickRequest) (string, error) {
	// Affiliate precedence: explicit aff parameter wins and overwrites
	// any prior cookie; otherwise the cookie carries the identity on.
	affCode := req.AffParam
	if affCode == "" {
		affCode = req.CookieAffiliate
	}

	country, city := s.locate(ctx, req)

	click := &model.Click{
		ID:            s.ids.Next(),
		LinkID:        link.ID,
		TenantID:      link.TenantID,
		IPHash:        s.hasher.Hash(req.IP),
		Country:       optional(country),
		City:          optional(city),
		Referrer:      optional(req.Referrer),
		UTMSource:     optional(req.UTMSource),
		UTMMedium:     optional(req.UTMMedium),
		UTMCampaign:   optional(req.UTMCampaign),
		AffiliateCode: optional(affCode),
		ClickedAt:     time.Now().UTC(),
	}
	fillUserAgent(click, req.UserAgent)

	if err := s.clicks.Create(ctx, click); err != nil {
		infraprom.ClicksRecorded.WithLabelValues("error").Inc()
		return affCode, err
	}

	infraprom.ClicksRecorded.WithLabelValues("ok").Inc()
	return affCode, nil
}

// locate resolves country and city as two independent axes: a trusted
// proxy header satisfies an axis outright; only the axes left empty
// fall back to the network lookup, performed at most once.
func (s *clickService) locate(ctx context.Context, req ClickRequest) (string, string) {
	country := req.HeaderCountry
	city := req.HeaderCity
	if country != "" && city != "" {
		return country, city
	}

	loc, err := s.locator.Locate(ctx, req.IP)
	if err != nil {
		s.logger.Debug("geo lookup failed", zap.Error(err))
		return country, city
	}

	if country == "" {
		country = loc.Country
	}
	if city == "" {
		city = loc.City
	}
	return country, city
}

func fillUserAgent(click *model.Click, raw string) {
	if raw == "" {
		return
	}

	ua := useragent.New(raw)
	name, _ := ua.Browser()
	click.Browser = optional(name)
	click.OS = optional(ua.OS())

	device := "desktop"
	switch {
	case ua.Bot():
		device = "bot"
	case ua.Mobile():
		device = "mobile"
	}
	click.Device = &device
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
