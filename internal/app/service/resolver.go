package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

var (
	// ErrNoSlug means no slug could be extracted from the request.
	ErrNoSlug = errors.New("no slug in request")
	// ErrNoDestination means the link exists but neither it nor its
	// campaign carries a destination URL.
	ErrNoDestination = errors.New("link has no destination")
	// ErrLinkDisabled means the link exists but was switched off.
	ErrLinkDisabled = errors.New("link is disabled")
)

// Resolution is the outcome of resolving a tracked request: the owning
// tenant (when known beyond the link's tenant id), the link, and the
// destination to redirect to.
type Resolution struct {
	Tenant      *model.Tenant
	Link        *model.Link
	Destination string
}

// ResolverService maps (host, path, ref query) to a Resolution.
type ResolverService interface {
	Resolve(ctx context.Context, host, path, refQuery string) (*Resolution, error)
	// NoteSlug feeds a newly created slug into the negative cache.
	NoteSlug(slug string)
}

type resolverService struct {
	tenants repository.TenantRepository
	links   repository.LinkRepository
	logger  *zap.Logger

	// Bloom filter over known slugs; a definite miss skips the DB
	// entirely. Guarded because link creation feeds it concurrently.
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewResolverService builds a resolver. Slugs seeds the bloom filter;
// pass nil to disable the negative cache.
func NewResolverService(tenants repository.TenantRepository, links repository.LinkRepository, slugs []string, logger *zap.Logger) ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}

	var filter *bloom.BloomFilter
	if slugs != nil {
		n := uint(len(slugs))
		if n < 1024 {
			n = 1024
		}
		filter = bloom.NewWithEstimates(n*4, 0.001)
		for _, slug := range slugs {
			filter.AddString(slug)
		}
	}

	return &resolverService{
		tenants: tenants,
		links:   links,
		logger:  logger,
		filter:  filter,
	}
}

func (s *resolverService) NoteSlug(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter != nil {
		s.filter.AddString(slug)
	}
}

func (s *resolverService) mightContain(slug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == nil {
		return true
	}
	return s.filter.TestString(slug)
}

// Resolve applies the tenant/link resolution scheme:
//  1. the host (port stripped) is matched case-insensitively against
//     tenant custom domains;
//  2. under a custom domain the slug lookup is scoped to that tenant;
//  3. otherwise the globally-unique slug is looked up directly, so one
//     shared tracking domain serves every tenant.
//
// Destination precedence is link first, then campaign. Each miss maps
// to a distinct error so callers can log which branch failed.
func (s *resolverService) Resolve(ctx context.Context, host, path, refQuery string) (*Resolution, error) {
	slug := extractSlug(path, refQuery)
	if slug == "" {
		return nil, ErrNoSlug
	}

	if !s.mightContain(slug) {
		return nil, repository.ErrLinkNotFound
	}

	var (
		tenant *model.Tenant
		link   *model.Link
		err    error
	)

	tenant, err = s.tenants.GetByCustomDomain(ctx, normalizeHost(host))
	switch {
	case err == nil:
		link, err = s.links.GetBySlugForTenant(ctx, slug, tenant.ID)
	case errors.Is(err, repository.ErrTenantNotFound):
		tenant = nil
		link, err = s.links.GetBySlug(ctx, slug)
	default:
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if link.Disabled {
		return nil, ErrLinkDisabled
	}

	destination := link.DestinationURL()
	if destination == "" {
		s.logger.Warn("link has no destination",
			zap.String("slug", slug),
			zap.Int64("link_id", link.ID))
		return nil, ErrNoDestination
	}

	return &Resolution{
		Tenant:      tenant,
		Link:        link,
		Destination: destination,
	}, nil
}

// normalizeHost strips any port from the request host.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// extractSlug picks the slug out of the request. A "ref=<slug>" path
// segment or a ref query parameter wins over the legacy clean-URL mode
// where the bare first path segment is the slug.
func extractSlug(path, refQuery string) string {
	if refQuery != "" {
		return refQuery
	}

	var bare string
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if value, ok := strings.CutPrefix(segment, "ref="); ok {
			return value
		}
		if bare == "" {
			bare = segment
		}
	}
	return bare
}
