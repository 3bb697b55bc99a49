package notify

import (
	"context"
	"fmt"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox/payloads"
)

// TicketRenderer produces the customer-facing ticket artifact for a booking.
type TicketRenderer interface {
	RenderTicket(ctx context.Context, event payloads.BookingCreatedEvent) error
}

// Messenger delivers booking messages to the customer (WhatsApp, SMS, email).
type Messenger interface {
	SendBookingCreated(ctx context.Context, event payloads.BookingCreatedEvent) error
	SendBookingCanceled(ctx context.Context, event payloads.BookingCanceledEvent) error
}

// Invoicer records the booking with the billing system.
type Invoicer interface {
	IssueInvoice(ctx context.Context, event payloads.BookingCreatedEvent) error
}

// LogCollaborators satisfies every collaborator interface by logging the
// call. Used until a real channel integration is configured, and in dev.
type LogCollaborators struct {
	logg *logger.Logger
}

func NewLogCollaborators(logg *logger.Logger) *LogCollaborators {
	return &LogCollaborators{logg: logg}
}

func (c *LogCollaborators) RenderTicket(ctx context.Context, event payloads.BookingCreatedEvent) error {
	c.logg.Info(c.logg.WithField(ctx, "booking_id", event.BookingID.String()), "ticket rendered")
	return nil
}

func (c *LogCollaborators) SendBookingCreated(ctx context.Context, event payloads.BookingCreatedEvent) error {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"booking_id": event.BookingID.String(),
		"phone":      maskPhone(event.CustomerPhone),
	})
	c.logg.Info(ctx, "booking confirmation sent")
	return nil
}

func (c *LogCollaborators) SendBookingCanceled(ctx context.Context, event payloads.BookingCanceledEvent) error {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"booking_id": event.BookingID.String(),
		"phone":      maskPhone(event.CustomerPhone),
	})
	c.logg.Info(ctx, "cancellation notice sent")
	return nil
}

func (c *LogCollaborators) IssueInvoice(ctx context.Context, event payloads.BookingCreatedEvent) error {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"booking_id":  event.BookingID.String(),
		"price_cents": event.PriceCents,
	})
	c.logg.Info(ctx, "invoice issued")
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return fmt.Sprintf("****%s", phone[len(phone)-4:])
}
