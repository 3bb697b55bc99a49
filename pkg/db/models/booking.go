package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/enums"
)

// Booking is a confirmed reservation of visitor_count units of a slot's
// capacity. Its visitor_count was validated against effective availability
// inside the booking transaction and is reflected in the slot's booked_count.
type Booking struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	ServiceID     uuid.UUID           `gorm:"column:service_id;type:uuid;not null"`
	SlotID        uuid.UUID           `gorm:"column:slot_id;type:uuid;not null;index"`
	CustomerName  string              `gorm:"column:customer_name;not null"`
	CustomerPhone string              `gorm:"column:customer_phone;not null"`
	CustomerEmail *string             `gorm:"column:customer_email"`
	AdultCount    int                 `gorm:"column:adult_count;not null"`
	ChildCount    int                 `gorm:"column:child_count;not null;default:0"`
	VisitorCount  int                 `gorm:"column:visitor_count;not null"`
	PriceCents    int                 `gorm:"column:price_cents;not null;default:0"`
	Status        enums.BookingStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Notes         *string             `gorm:"column:notes"`
	CreatedBy     *string             `gorm:"column:created_by"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
