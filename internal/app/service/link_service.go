package service

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
)

// LinkService defines behaviour-level operations on tracked links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	GetLink(ctx context.Context, slug string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error)
	UpdateLink(ctx context.Context, slug string, input UpdateLinkInput) (*model.Link, error)
}

type linkService struct {
	repo     repository.LinkRepository
	ids      *ids.Generator
	resolver ResolverService
}

// NewLinkService returns a service implementation backed by the given
// repository. resolver may be nil; when set, new slugs feed its
// negative cache.
func NewLinkService(repo repository.LinkRepository, gen *ids.Generator, resolver ResolverService) LinkService {
	return &linkService{repo: repo, ids: gen, resolver: resolver}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	TenantID    int64
	CampaignID  *int64
	Clipper     *string
	Slug        string
	Destination *string
}

// UpdateLinkInput captures fields that can be changed on an existing link.
type UpdateLinkInput struct {
	CampaignID  *int64
	Clipper     *string
	Destination *string
	Disabled    *bool
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	slug := input.Slug
	if slug == "" {
		generated, err := generateSlug(6)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		slug = generated
	}

	link := &model.Link{
		ID:          s.ids.Next(),
		TenantID:    input.TenantID,
		CampaignID:  input.CampaignID,
		Clipper:     input.Clipper,
		Slug:        slug,
		Destination: input.Destination,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	if s.resolver != nil {
		s.resolver.NoteSlug(link.Slug)
	}
	return link, nil
}

func (s *linkService) GetLink(ctx context.Context, slug string) (*model.Link, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error) {
	links, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) UpdateLink(ctx context.Context, slug string, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}

	if input.CampaignID != nil {
		link.CampaignID = input.CampaignID
	}
	if input.Clipper != nil {
		link.Clipper = input.Clipper
	}
	if input.Destination != nil {
		link.Destination = input.Destination
	}
	if input.Disabled != nil {
		link.Disabled = *input.Disabled
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	return link, nil
}

const slugAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

// generateSlug mints a random slug from an alphabet without lookalike
// characters.
func generateSlug(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}
