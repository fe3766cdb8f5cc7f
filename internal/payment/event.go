package payment

import "time"

// Event types handled by the gateway. Anything else is accepted and
// ignored so processor API additions never break ingestion.
const (
	TypeCheckoutCompleted   = "checkout.session.completed"
	TypeInvoicePaid         = "invoice.paid"
	TypeInvoicePaymentOK    = "invoice.payment_succeeded"
	TypeSubscriptionCreated = "customer.subscription.created"
	TypeSubscriptionUpdated = "customer.subscription.updated"
	TypeChargeRefunded      = "charge.refunded"
)

// Kind discriminates the parsed event union.
type Kind int

const (
	KindOther Kind = iota
	KindCheckoutCompleted
	KindInvoicePaid
	KindSubscriptionChanged
	KindChargeRefunded
)

// Event is a verified processor delivery parsed into a tagged union:
// exactly one variant pointer is non-nil for known types, all are nil
// for KindOther. Each variant carries only the fields attribution reads.
type Event struct {
	ID      string
	Type    string
	Account string

	Checkout     *CheckoutCompleted
	Invoice      *InvoicePaid
	Subscription *SubscriptionChanged
	Refund       *ChargeRefunded
}

// Kind returns the union discriminant.
func (e *Event) Kind() Kind {
	switch {
	case e.Checkout != nil:
		return KindCheckoutCompleted
	case e.Invoice != nil:
		return KindInvoicePaid
	case e.Subscription != nil:
		return KindSubscriptionChanged
	case e.Refund != nil:
		return KindChargeRefunded
	default:
		return KindOther
	}
}

// CheckoutCompleted is a finished checkout session. Mode "payment" is a
// one-time purchase settled by the session itself; subscription sessions
// settle later through invoice events.
type CheckoutCompleted struct {
	SessionID      string
	CustomerID     string
	SubscriptionID string
	Mode           string
	AmountTotal    int64
	Currency       string
	Metadata       map[string]string
}

// InvoicePaid is a settled invoice. The processor propagates checkout
// metadata asymmetrically, so the subscription- and customer-level maps
// are carried alongside the invoice's own metadata for the extraction
// cascade.
type InvoicePaid struct {
	InvoiceID            string
	CustomerID           string
	SubscriptionID       string
	AmountCents          int64
	Currency             string
	PaidAt               time.Time
	Metadata             map[string]string
	SubscriptionMetadata map[string]string
	CustomerMetadata     map[string]string
}

// SubscriptionChanged covers subscription create/update events.
type SubscriptionChanged struct {
	SubscriptionID string
	CustomerID     string
	Status         string
	Metadata       map[string]string
}

// ChargeRefunded is a refunded charge; InvoiceID locates the conversion
// to transition.
type ChargeRefunded struct {
	ChargeID   string
	InvoiceID  string
	CustomerID string
}
