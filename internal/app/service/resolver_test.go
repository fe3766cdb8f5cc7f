package service

import (
	"context"
	"testing"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSlug(t *testing.T) {
	cases := []struct {
		path     string
		refQuery string
		want     string
	}{
		{"/ref=fhkeo", "", "fhkeo"},
		{"/fhkeo", "", "fhkeo"},
		{"/go/ref=fhkeo", "", "fhkeo"},
		{"/anything", "fhkeo", "fhkeo"}, // ref query beats the path
		{"/promo/ref=abc", "", "abc"},   // ref segment beats the bare segment
		{"/", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractSlug(tc.path, tc.refQuery), "path=%q ref=%q", tc.path, tc.refQuery)
	}
}

func TestResolveGlobalSlug(t *testing.T) {
	dest := "https://acme.com/offer"
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			require.Equal(t, "fhkeo", slug)
			return &model.Link{ID: 1, TenantID: 7, Slug: slug, Destination: &dest}, nil
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, nil, nil)

	res, err := svc.Resolve(context.Background(), "links.example.com", "/ref=fhkeo", "")
	require.NoError(t, err)
	assert.Nil(t, res.Tenant)
	assert.Equal(t, "https://acme.com/offer", res.Destination)
	assert.Equal(t, int64(1), res.Link.ID)
}

func TestResolveCustomDomainScopesTenant(t *testing.T) {
	dest := "https://acme.com/offer"
	tenants := &mockTenantRepository{
		getByDomainFn: func(ctx context.Context, host string) (*model.Tenant, error) {
			// Port must already be stripped.
			require.Equal(t, "go.acme.com", host)
			return &model.Tenant{ID: 7}, nil
		},
	}
	links := &mockLinkRepository{
		getBySlugTenantFn: func(ctx context.Context, slug string, tenantID int64) (*model.Link, error) {
			require.Equal(t, int64(7), tenantID)
			return &model.Link{ID: 1, TenantID: 7, Slug: slug, Destination: &dest}, nil
		},
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			t.Fatal("global lookup must not run under a custom domain")
			return nil, nil
		},
	}
	svc := NewResolverService(tenants, links, nil, nil)

	res, err := svc.Resolve(context.Background(), "go.acme.com:443", "/fhkeo", "")
	require.NoError(t, err)
	require.NotNil(t, res.Tenant)
	assert.Equal(t, int64(7), res.Tenant.ID)
}

func TestResolveCustomDomainMissDoesNotFallBackGlobally(t *testing.T) {
	// Another tenant owns the slug; under a custom domain the miss must
	// stay a miss.
	tenants := &mockTenantRepository{
		getByDomainFn: func(ctx context.Context, host string) (*model.Tenant, error) {
			return &model.Tenant{ID: 7}, nil
		},
	}
	links := &mockLinkRepository{
		getBySlugTenantFn: func(ctx context.Context, slug string, tenantID int64) (*model.Link, error) {
			return nil, repository.ErrLinkNotFound
		},
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			t.Fatal("global lookup must not run under a custom domain")
			return nil, nil
		},
	}
	svc := NewResolverService(tenants, links, nil, nil)

	_, err := svc.Resolve(context.Background(), "go.acme.com", "/fhkeo", "")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestResolveDisabledLink(t *testing.T) {
	dest := "https://acme.com/offer"
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			return &model.Link{ID: 1, TenantID: 7, Slug: slug, Destination: &dest, Disabled: true}, nil
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, nil, nil)

	_, err := svc.Resolve(context.Background(), "links.example.com", "/fhkeo", "")
	assert.ErrorIs(t, err, ErrLinkDisabled, "a disabled link must not resolve to its destination")
}

func TestResolveNoDestination(t *testing.T) {
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			return &model.Link{ID: 1, TenantID: 7, Slug: slug}, nil
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, nil, nil)

	_, err := svc.Resolve(context.Background(), "links.example.com", "/fhkeo", "")
	assert.ErrorIs(t, err, ErrNoDestination)
}

func TestResolveCampaignDestinationFallback(t *testing.T) {
	campaignDest := "https://acme.com/campaign"
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			return &model.Link{
				ID: 1, TenantID: 7, Slug: slug,
				Campaign: &model.Campaign{ID: 2, Destination: &campaignDest},
			}, nil
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, nil, nil)

	res, err := svc.Resolve(context.Background(), "links.example.com", "/fhkeo", "")
	require.NoError(t, err)
	assert.Equal(t, campaignDest, res.Destination)
}

func TestResolveNoSlug(t *testing.T) {
	svc := NewResolverService(&mockTenantRepository{}, &mockLinkRepository{}, nil, nil)

	_, err := svc.Resolve(context.Background(), "links.example.com", "/", "")
	assert.ErrorIs(t, err, ErrNoSlug)
}

func TestResolveBloomNegativeCacheSkipsRepository(t *testing.T) {
	called := false
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			called = true
			return nil, repository.ErrLinkNotFound
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, []string{"known1", "known2"}, nil)

	_, err := svc.Resolve(context.Background(), "links.example.com", "/definitely-not-a-slug", "")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.False(t, called, "a definite bloom miss must not hit the repository")
}

func TestNoteSlugFeedsNegativeCache(t *testing.T) {
	dest := "https://acme.com/x"
	links := &mockLinkRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*model.Link, error) {
			return &model.Link{ID: 1, TenantID: 7, Slug: slug, Destination: &dest}, nil
		},
	}
	svc := NewResolverService(&mockTenantRepository{}, links, []string{"seed"}, nil)
	svc.NoteSlug("freshslug")

	res, err := svc.Resolve(context.Background(), "links.example.com", "/freshslug", "")
	require.NoError(t, err)
	assert.Equal(t, dest, res.Destination)
}
