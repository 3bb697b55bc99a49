package models

import (
	"time"

	"github.com/google/uuid"
)

// Slot is the authoritative capacity record for one bookable time window of a
// service on a date. Its counters are only ever mutated under a row-level
// lock; available_capacity is kept equal to original_capacity - booked_count
// in the same statement that moves booked_count.
type Slot struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index:idx_slots_tenant_service_date,priority:1"`
	ServiceID         uuid.UUID `gorm:"column:service_id;type:uuid;not null;index:idx_slots_tenant_service_date,priority:2"`
	Date              time.Time `gorm:"column:date;type:date;not null;index:idx_slots_tenant_service_date,priority:3"`
	StartTime         string    `gorm:"column:start_time;type:text;not null"`
	EndTime           string    `gorm:"column:end_time;type:text;not null"`
	OriginalCapacity  int       `gorm:"column:original_capacity;not null"`
	BookedCount       int       `gorm:"column:booked_count;not null;default:0"`
	AvailableCapacity int       `gorm:"column:available_capacity;not null"`
	IsAvailable       bool      `gorm:"column:is_available;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
