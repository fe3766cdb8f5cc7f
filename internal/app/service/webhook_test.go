package service

import (
	"context"
	"testing"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventBody = `{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1","amount_paid":100,"currency":"usd","created":1700000000}}}`

func signedBody(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	body := []byte(testEventBody)
	return body, payment.Sign(body, secret, time.Now())
}

func probeTenants() []model.Tenant {
	return []model.Tenant{
		{ID: 1, Name: "first", WebhookSecret: strptr("whsec_t1")},
		{ID: 2, Name: "second", WebhookSecret: strptr("whsec_t2")},
	}
}

func newTestWebhookService(t *testing.T, tenants *mockTenantRepository, events *mockWebhookEventRepository, defaultSecret string) WebhookService {
	t.Helper()
	return NewWebhookService(tenants, events, newTestGenerator(t), defaultSecret, 5*time.Minute, nil)
}

func TestVerifyAndStoreProbesToSigner(t *testing.T) {
	// Signed with the second tenant's secret: probing must walk past
	// the first and land on the signer.
	body, sig := signedBody(t, "whsec_t2")

	var stored *model.WebhookEvent
	events := &mockWebhookEventRepository{
		upsertFn: func(ctx context.Context, event *model.WebhookEvent) error {
			stored = event
			return nil
		},
	}
	tenants := &mockTenantRepository{
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, events, "")

	event, resolved, err := svc.VerifyAndStore(context.Background(), body, sig, "")
	require.NoError(t, err)
	require.NotNil(t, resolved.Tenant)
	assert.Equal(t, int64(2), resolved.Tenant.ID)
	assert.False(t, resolved.ViaDefault)
	assert.Equal(t, "evt_1", event.ID)

	require.NotNil(t, stored)
	assert.Equal(t, "evt_1", stored.EventID)
	assert.True(t, stored.SignatureValid)
	require.NotNil(t, stored.TenantID)
	assert.Equal(t, int64(2), *stored.TenantID)
}

func TestVerifyAndStoreHintShortCircuitsProbing(t *testing.T) {
	body, sig := signedBody(t, "whsec_t2")

	probed := false
	tenants := &mockTenantRepository{
		getByAccountFn: func(ctx context.Context, accountID string) (*model.Tenant, error) {
			require.Equal(t, "acct_2", accountID)
			return &model.Tenant{ID: 2, WebhookSecret: strptr("whsec_t2"), AccountID: strptr("acct_2")}, nil
		},
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			probed = true
			return nil, nil
		},
	}
	svc := newTestWebhookService(t, tenants, &mockWebhookEventRepository{}, "")

	_, resolved, err := svc.VerifyAndStore(context.Background(), body, sig, "acct_2")
	require.NoError(t, err)
	require.NotNil(t, resolved.Tenant)
	assert.Equal(t, int64(2), resolved.Tenant.ID)
	assert.False(t, probed)
}

func TestVerifyAndStoreBadHintFallsBackToProbing(t *testing.T) {
	// The hinted tenant's secret does not verify; the signer is found
	// through the full probe.
	body, sig := signedBody(t, "whsec_t2")

	tenants := &mockTenantRepository{
		getByAccountFn: func(ctx context.Context, accountID string) (*model.Tenant, error) {
			return &model.Tenant{ID: 1, WebhookSecret: strptr("whsec_t1")}, nil
		},
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, &mockWebhookEventRepository{}, "")

	_, resolved, err := svc.VerifyAndStore(context.Background(), body, sig, "acct_1")
	require.NoError(t, err)
	require.NotNil(t, resolved.Tenant)
	assert.Equal(t, int64(2), resolved.Tenant.ID)
}

func TestVerifyAndStoreDefaultSecretFallback(t *testing.T) {
	body, sig := signedBody(t, "whsec_platform")

	tenants := &mockTenantRepository{
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, &mockWebhookEventRepository{}, "whsec_platform")

	_, resolved, err := svc.VerifyAndStore(context.Background(), body, sig, "")
	require.NoError(t, err)
	assert.Nil(t, resolved.Tenant)
	assert.True(t, resolved.ViaDefault)
}

func TestVerifyAndStoreFailsClosed(t *testing.T) {
	body, sig := signedBody(t, "whsec_unknown")

	stored := false
	events := &mockWebhookEventRepository{
		upsertFn: func(ctx context.Context, event *model.WebhookEvent) error {
			stored = true
			return nil
		},
	}
	tenants := &mockTenantRepository{
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, events, "whsec_platform")

	_, _, err := svc.VerifyAndStore(context.Background(), body, sig, "")
	assert.ErrorIs(t, err, ErrUnverified)
	assert.False(t, stored, "unverified payloads must never be stored")
}

func TestVerifyAndStoreNoSecretsAnywhere(t *testing.T) {
	body, sig := signedBody(t, "whsec_t1")
	svc := newTestWebhookService(t, &mockTenantRepository{}, &mockWebhookEventRepository{}, "")

	_, _, err := svc.VerifyAndStore(context.Background(), body, sig, "")
	assert.ErrorIs(t, err, ErrUnverified)
}

func TestVerifyAndStoreMalformedPayload(t *testing.T) {
	body := []byte(`{"type":"invoice.paid"}`) // missing event id
	sig := payment.Sign(body, "whsec_t1", time.Now())

	tenants := &mockTenantRepository{
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, &mockWebhookEventRepository{}, "")

	_, _, err := svc.VerifyAndStore(context.Background(), body, sig, "")
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestVerifyAndStoreUnknownHintIsNotFatal(t *testing.T) {
	body, sig := signedBody(t, "whsec_t1")

	tenants := &mockTenantRepository{
		getByAccountFn: func(ctx context.Context, accountID string) (*model.Tenant, error) {
			return nil, repository.ErrTenantNotFound
		},
		listWithSecretsFn: func(ctx context.Context) ([]model.Tenant, error) {
			return probeTenants(), nil
		},
	}
	svc := newTestWebhookService(t, tenants, &mockWebhookEventRepository{}, "")

	_, resolved, err := svc.VerifyAndStore(context.Background(), body, sig, "acct_missing")
	require.NoError(t, err)
	require.NotNil(t, resolved.Tenant)
	assert.Equal(t, int64(1), resolved.Tenant.ID)
}
