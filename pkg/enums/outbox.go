package enums

// OutboxEventType identifies the domain event stored in an outbox row.
type OutboxEventType string

const (
	EventBookingCreated  OutboxEventType = "booking.created"
	EventBookingCanceled OutboxEventType = "booking.canceled"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking OutboxAggregateType = "booking"
)
