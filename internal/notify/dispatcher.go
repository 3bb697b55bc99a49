package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/enums"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox/payloads"
)

// decodeError marks a payload that can never be dispatched. Retrying will
// not fix it, so the publisher burns an attempt instead of looping forever.
type decodeError struct {
	cause error
}

func (e decodeError) Error() string {
	return fmt.Sprintf("undecodable event payload: %v", e.cause)
}

func (e decodeError) Unwrap() error {
	return e.cause
}

// IsDecodeError reports whether the dispatch failure came from the payload
// itself rather than a collaborator.
func IsDecodeError(err error) bool {
	var de decodeError
	return errors.As(err, &de)
}

// Dispatcher fans one outbox event out to the collaborators that care about
// it. Collaborator failures are collected, not short-circuited: the ticket
// still renders when the messenger is down.
type Dispatcher struct {
	tickets  TicketRenderer
	msgr     Messenger
	invoicer Invoicer
	logg     *logger.Logger
}

func NewDispatcher(tickets TicketRenderer, msgr Messenger, invoicer Invoicer, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{tickets: tickets, msgr: msgr, invoicer: invoicer, logg: logg}
}

// Dispatch decodes the stored envelope and routes it by event type.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return decodeError{cause: err}
	}

	ctx = d.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": event.EventType,
	})

	switch event.EventType {
	case enums.EventBookingCreated:
		return d.dispatchCreated(ctx, envelope.Data)
	case enums.EventBookingCanceled:
		return d.dispatchCanceled(ctx, envelope.Data)
	default:
		return decodeError{cause: fmt.Errorf("unknown event type %q", event.EventType)}
	}
}

func (d *Dispatcher) dispatchCreated(ctx context.Context, data json.RawMessage) error {
	var event payloads.BookingCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return decodeError{cause: err}
	}

	var errs error
	if err := d.tickets.RenderTicket(ctx, event); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("ticket: %w", err))
	}
	if err := d.msgr.SendBookingCreated(ctx, event); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("messenger: %w", err))
	}
	if err := d.invoicer.IssueInvoice(ctx, event); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invoicer: %w", err))
	}
	return errs
}

func (d *Dispatcher) dispatchCanceled(ctx context.Context, data json.RawMessage) error {
	var event payloads.BookingCanceledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return decodeError{cause: err}
	}
	if err := d.msgr.SendBookingCanceled(ctx, event); err != nil {
		return fmt.Errorf("messenger: %w", err)
	}
	return nil
}
