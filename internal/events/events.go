// Package events publishes reservation lifecycle events to the message broker.
// Consumers (mail, analytics) live outside this service.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	ReservationCreated    = "reservation.created"
	ReservationUpdated    = "reservation.updated"
	ReservationCancelled  = "reservation.cancelled"
	ReservationCompleted  = "reservation.completed"
	ChangeRequestApproved = "change_request.approved"
)

// Event is the JSON payload sent for every reservation state change. It
// carries enough detail for a consumer to notify the guest without reading
// the database.
type Event struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	RoomID        string    `json:"room_id"`
	RoomNumber    string    `json:"room_number,omitempty"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	Guests        int       `json:"guests"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	InquiryID     string    `json:"inquiry_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
