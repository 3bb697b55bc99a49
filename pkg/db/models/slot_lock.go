package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotLock is a temporary capacity hold taken during checkout. A lock is
// active while lock_expires_at is in the future; expired rows are ignored by
// every capacity calculation and swept later purely for storage hygiene.
type SlotLock struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SlotID           uuid.UUID `gorm:"column:slot_id;type:uuid;not null;index:idx_slot_locks_slot_expiry,priority:1"`
	SessionID        string    `gorm:"column:session_id;not null"`
	ReservedCapacity int       `gorm:"column:reserved_capacity;not null"`
	LockExpiresAt    time.Time `gorm:"column:lock_expires_at;not null;index:idx_slot_locks_slot_expiry,priority:2"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
