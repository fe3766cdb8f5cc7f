package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/geo"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *ids.Generator {
	t.Helper()
	gen, err := ids.New(1)
	require.NoError(t, err)
	return gen
}

func TestRecordAffParamBeatsCookie(t *testing.T) {
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, &mockLocator{}, NewIPHasher("k"), newTestGenerator(t), nil)

	code, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:              "203.0.113.9",
		AffParam:        "JOE123",
		CookieAffiliate: "OLD456",
	})
	require.NoError(t, err)
	assert.Equal(t, "JOE123", code)
	require.NotNil(t, stored.AffiliateCode)
	assert.Equal(t, "JOE123", *stored.AffiliateCode)
}

func TestRecordCookieCarriesWhenNoParam(t *testing.T) {
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, &mockLocator{}, NewIPHasher("k"), newTestGenerator(t), nil)

	code, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:              "203.0.113.9",
		CookieAffiliate: "OLD456",
	})
	require.NoError(t, err)
	assert.Equal(t, "OLD456", code)
	require.NotNil(t, stored.AffiliateCode)
	assert.Equal(t, "OLD456", *stored.AffiliateCode)
}

func TestRecordStoresHashedIPOnly(t *testing.T) {
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	hasher := NewIPHasher("k")
	svc := NewClickService(clicks, &mockLocator{}, hasher, newTestGenerator(t), nil)

	_, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{IP: "203.0.113.9"})
	require.NoError(t, err)
	assert.Equal(t, hasher.Hash("203.0.113.9"), stored.IPHash)
	assert.NotContains(t, stored.IPHash, "203.0.113.9")
}

func TestRecordHeadersSatisfyGeoAxes(t *testing.T) {
	locator := &mockLocator{}
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, locator, NewIPHasher("k"), newTestGenerator(t), nil)

	_, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:            "203.0.113.9",
		HeaderCountry: "DE",
		HeaderCity:    "Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, locator.calls, "both axes satisfied by headers, no network lookup")
	assert.Equal(t, "DE", *stored.Country)
	assert.Equal(t, "Berlin", *stored.City)
}

func TestRecordLookupFillsOnlyMissingAxis(t *testing.T) {
	locator := &mockLocator{
		locateFn: func(ctx context.Context, ip string) (geo.Location, error) {
			return geo.Location{Country: "FR", City: "Paris"}, nil
		},
	}
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, locator, NewIPHasher("k"), newTestGenerator(t), nil)

	_, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:            "203.0.113.9",
		HeaderCountry: "DE", // header axis must survive the lookup result
	})
	require.NoError(t, err)
	assert.Equal(t, 1, locator.calls)
	assert.Equal(t, "DE", *stored.Country)
	assert.Equal(t, "Paris", *stored.City)
}

func TestRecordGeoFailureStillStoresClick(t *testing.T) {
	locator := &mockLocator{
		locateFn: func(ctx context.Context, ip string) (geo.Location, error) {
			return geo.Location{}, errors.New("upstream down")
		},
	}
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, locator, NewIPHasher("k"), newTestGenerator(t), nil)

	_, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{IP: "203.0.113.9"})
	require.NoError(t, err)
	assert.Nil(t, stored.Country)
	assert.Nil(t, stored.City)
}

func TestRecordReturnsCodeEvenOnStoreFailure(t *testing.T) {
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			return errors.New("db down")
		},
	}
	svc := NewClickService(clicks, &mockLocator{}, NewIPHasher("k"), newTestGenerator(t), nil)

	code, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:       "203.0.113.9",
		AffParam: "JOE123",
	})
	require.Error(t, err)
	assert.Equal(t, "JOE123", code, "the caller still needs the code to set cookies before redirecting")
}

func TestRecordParsesUserAgent(t *testing.T) {
	var stored *model.Click
	clicks := &mockClickRepository{
		createFn: func(ctx context.Context, click *model.Click) error {
			stored = click
			return nil
		},
	}
	svc := NewClickService(clicks, &mockLocator{}, NewIPHasher("k"), newTestGenerator(t), nil)

	_, err := svc.Record(context.Background(), &model.Link{ID: 1, TenantID: 7}, ClickRequest{
		IP:        "203.0.113.9",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	})
	require.NoError(t, err)
	require.NotNil(t, stored.Device)
	assert.Equal(t, "mobile", *stored.Device)
	require.NotNil(t, stored.Browser)
	assert.Equal(t, "Safari", *stored.Browser)
}
