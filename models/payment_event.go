// Package models contains domain entities and business models for the account backend
package models

import (
	"encoding/json"
	"time"
)

// PaymentEvent is a durable record of a verified webhook delivery. The unique
// index on event_id makes redeliveries from the payment provider at-most-once
// even when the cache-level dedup is unavailable.
type PaymentEvent struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	EventID       string          `gorm:"size:255;not null;uniqueIndex:uk_payment_events_event_id" json:"event_id"`
	EventType     string          `gorm:"size:100;not null;index:idx_payment_events_event_type" json:"event_type"`
	CustomerEmail *string         `gorm:"size:255;index:idx_payment_events_customer_email" json:"customer_email,omitempty"`
	Payload       json.RawMessage `gorm:"type:jsonb" json:"payload,omitempty"`
	Status        string          `gorm:"size:20;not null;index:idx_payment_events_status" json:"status"`
	ErrorMessage  *string         `gorm:"type:text" json:"error_message,omitempty"`
	ReceivedAt    time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_payment_events_received_at" json:"received_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}

// Payment event status constants
const (
	PaymentEventStatusReceived  = "received"
	PaymentEventStatusProcessed = "processed"
	PaymentEventStatusSkipped   = "skipped"
	PaymentEventStatusFailed    = "failed"
)

// PaymentEventFilter represents filter criteria for payment event queries
type PaymentEventFilter struct {
	ID             *uint
	EventID        *string
	EventType      *string
	CustomerEmail  *string
	Status         *string
	ReceivedAfter  *time.Time
	ReceivedBefore *time.Time
}

func (e *PaymentEvent) IsProcessed() bool {
	return e.Status == PaymentEventStatusProcessed
}
