package service

import (
	"encoding/json"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ConversionPublisher publishes conversion events to NATS JetStream for
// the async stats consumer.
type ConversionPublisher struct {
	js nats.JetStreamContext
}

// NewConversionPublisher creates a new conversion event publisher.
func NewConversionPublisher(js nats.JetStreamContext) *ConversionPublisher {
	return &ConversionPublisher{js: js}
}

// Publish emits one event for a freshly written conversion row.
func (p *ConversionPublisher) Publish(conversion *model.Conversion) error {
	event := model.ConversionEvent{
		ID:              uuid.New().String(),
		TenantID:        conversion.TenantID,
		LinkID:          conversion.LinkID,
		InvoiceID:       conversion.InvoiceID,
		AmountCents:     conversion.AmountCents,
		Currency:        conversion.Currency,
		Status:          conversion.Status,
		AttributionMode: conversion.AttributionMode,
		PaidAt:          conversion.PaidAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ConversionStreamSubject, data)
	return err
}
