package payment

import (
	"encoding/json"
	"fmt"
	"time"
)

type envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Parse decodes a verified delivery into the typed event union. Unknown
// event types yield an Event with no variant set (KindOther), never an
// error: ingestion must stay forward-compatible.
func Parse(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("payment: decode envelope: %w", err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("payment: envelope missing id or type")
	}

	event := &Event{
		ID:      env.ID,
		Type:    env.Type,
		Account: env.Account,
	}

	switch env.Type {
	case TypeCheckoutCompleted:
		var obj struct {
			ID           string            `json:"id"`
			Customer     string            `json:"customer"`
			Subscription string            `json:"subscription"`
			Mode         string            `json:"mode"`
			AmountTotal  int64             `json:"amount_total"`
			Currency     string            `json:"currency"`
			Metadata     map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("payment: decode checkout session: %w", err)
		}
		event.Checkout = &CheckoutCompleted{
			SessionID:      obj.ID,
			CustomerID:     obj.Customer,
			SubscriptionID: obj.Subscription,
			Mode:           obj.Mode,
			AmountTotal:    obj.AmountTotal,
			Currency:       obj.Currency,
			Metadata:       obj.Metadata,
		}

	case TypeInvoicePaid, TypeInvoicePaymentOK:
		var obj struct {
			ID                  string            `json:"id"`
			Customer            string            `json:"customer"`
			Subscription        string            `json:"subscription"`
			AmountPaid          int64             `json:"amount_paid"`
			Currency            string            `json:"currency"`
			Created             int64             `json:"created"`
			Metadata            map[string]string `json:"metadata"`
			SubscriptionDetails struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"subscription_details"`
			CustomerMetadata  map[string]string `json:"customer_metadata"`
			StatusTransitions struct {
				PaidAt int64 `json:"paid_at"`
			} `json:"status_transitions"`
		}
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("payment: decode invoice: %w", err)
		}
		paidAt := obj.StatusTransitions.PaidAt
		if paidAt == 0 {
			paidAt = obj.Created
		}
		event.Invoice = &InvoicePaid{
			InvoiceID:            obj.ID,
			CustomerID:           obj.Customer,
			SubscriptionID:       obj.Subscription,
			AmountCents:          obj.AmountPaid,
			Currency:             obj.Currency,
			PaidAt:               time.Unix(paidAt, 0).UTC(),
			Metadata:             obj.Metadata,
			SubscriptionMetadata: obj.SubscriptionDetails.Metadata,
			CustomerMetadata:     obj.CustomerMetadata,
		}

	case TypeSubscriptionCreated, TypeSubscriptionUpdated:
		var obj struct {
			ID       string            `json:"id"`
			Customer string            `json:"customer"`
			Status   string            `json:"status"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("payment: decode subscription: %w", err)
		}
		event.Subscription = &SubscriptionChanged{
			SubscriptionID: obj.ID,
			CustomerID:     obj.Customer,
			Status:         obj.Status,
			Metadata:       obj.Metadata,
		}

	case TypeChargeRefunded:
		var obj struct {
			ID       string `json:"id"`
			Invoice  string `json:"invoice"`
			Customer string `json:"customer"`
		}
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("payment: decode charge: %w", err)
		}
		event.Refund = &ChargeRefunded{
			ChargeID:   obj.ID,
			InvoiceID:  obj.Invoice,
			CustomerID: obj.Customer,
		}
	}

	return event, nil
}
