package payloads

import (
	"time"

	"github.com/google/uuid"
)

// BookingCreatedEvent is handed to the ticket, messaging and invoicing
// collaborators after a booking transaction commits.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID  `json:"bookingId"`
	TenantID      uuid.UUID  `json:"tenantId"`
	ServiceID     uuid.UUID  `json:"serviceId"`
	SlotID        uuid.UUID  `json:"slotId"`
	CustomerName  string     `json:"customerName"`
	CustomerPhone string     `json:"customerPhone"`
	CustomerEmail *string    `json:"customerEmail,omitempty"`
	VisitorCount  int        `json:"visitorCount"`
	PriceCents    int        `json:"priceCents"`
	Date          time.Time  `json:"date"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
}

// BookingCanceledEvent notifies the messaging collaborator of a cancellation.
type BookingCanceledEvent struct {
	BookingID     uuid.UUID `json:"bookingId"`
	TenantID      uuid.UUID `json:"tenantId"`
	SlotID        uuid.UUID `json:"slotId"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	CustomerEmail *string   `json:"customerEmail,omitempty"`
	VisitorCount  int       `json:"visitorCount"`
}
