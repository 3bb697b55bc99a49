package slots

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
)

// Repository is the authoritative capacity store. Every mutation of a slot's
// counters goes through Reserve/Release against a row previously loaded with
// FindForUpdate inside the same transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the slot scoped to the asserted tenant.
func (r *Repository) FindByID(ctx context.Context, tenantID, slotID uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", slotID, tenantID).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, err
	}
	return &slot, nil
}

// FindForUpdate loads the slot under an exclusive row lock. Concurrent
// transactions against the same slot serialize here; a cross-tenant id is
// indistinguishable from an unknown one.
func (r *Repository) FindForUpdate(ctx context.Context, tenantID, slotID uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", slotID, tenantID).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, err
	}
	return &slot, nil
}

// Reserve consumes qty units of the slot's capacity. The slot must have been
// loaded via FindForUpdate inside the current transaction.
func (r *Repository) Reserve(ctx context.Context, slot *models.Slot, qty int) error {
	if slot == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "slot row required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}
	if !slot.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeSlotUnavailable, "slot is disabled")
	}
	if slot.BookedCount+qty > slot.OriginalCapacity {
		return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "slot capacity exceeded").
			WithDetails(map[string]any{
				"requested": qty,
				"available": slot.OriginalCapacity - slot.BookedCount,
			})
	}
	return r.applyDelta(ctx, slot, qty)
}

// Release returns qty units to the slot. Driving booked_count below zero is a
// bookkeeping bug upstream and is reported as a non-retryable fatal error.
func (r *Repository) Release(ctx context.Context, slot *models.Slot, qty int) error {
	if slot == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "slot row required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	if slot.BookedCount-qty < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRelease, "release would drive booked count negative").
			WithDetails(map[string]any{
				"booked_count": slot.BookedCount,
				"release_qty":  qty,
			})
	}
	return r.applyDelta(ctx, slot, -qty)
}

func (r *Repository) applyDelta(ctx context.Context, slot *models.Slot, delta int) error {
	booked := slot.BookedCount + delta
	available := slot.OriginalCapacity - booked
	err := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"booked_count":       booked,
			"available_capacity": available,
		}).Error
	if err != nil {
		return err
	}
	slot.BookedCount = booked
	slot.AvailableCapacity = available
	return nil
}

// SetAvailability soft-enables or soft-disables the slot. Slots referenced by
// bookings are never deleted, only disabled.
func (r *Repository) SetAvailability(ctx context.Context, tenantID, slotID uuid.UUID, available bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND tenant_id = ?", slotID, tenantID).
		Update("is_available", available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
	}
	return nil
}

// Create inserts a slot row; used by the schedule-generation process and tests.
func (r *Repository) Create(ctx context.Context, slot *models.Slot) (*models.Slot, error) {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.AvailableCapacity = slot.OriginalCapacity - slot.BookedCount
	if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}
