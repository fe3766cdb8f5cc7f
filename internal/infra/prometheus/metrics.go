package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcomes and webhook verification outcomes used as label values.
const (
	OutcomeOK            = "ok"
	OutcomeNotFound      = "not_found"
	OutcomeNoDestination = "no_destination"
	OutcomeDisabled      = "disabled"
	OutcomeError         = "error"

	VerifyHinted   = "hinted"
	VerifyProbed   = "probed"
	VerifyDefault  = "default"
	VerifyRejected = "rejected"
)

var (
	// RedirectsServed counts tracked-request resolutions by outcome.
	RedirectsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_redirects_total",
		Help: "Tracked requests served, by resolution outcome.",
	}, []string{"outcome"})

	// ClicksRecorded counts persisted click rows; failures are counted
	// separately because the redirect is issued regardless.
	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_clicks_recorded_total",
		Help: "Click rows written, by result.",
	}, []string{"result"})

	// WebhookDeliveries counts webhook verifications by how the tenant
	// secret was resolved.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_webhook_deliveries_total",
		Help: "Webhook deliveries, by verification outcome.",
	}, []string{"outcome"})

	// SecretProbes observes how many tenant secrets were tried before a
	// delivery verified.
	SecretProbes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracking_webhook_secret_probes",
		Help:    "Tenant secrets probed per verified delivery.",
		Buckets: prometheus.LinearBuckets(1, 5, 10),
	})

	// ConversionsTotal counts conversion writes by attribution mode.
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_conversions_total",
		Help: "Conversions created, by attribution mode.",
	}, []string{"mode"})
)
