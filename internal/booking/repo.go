package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/enums"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
)

// Repository persists booking rows.
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

// Insert stores a new booking row.
func (r *Repository) Insert(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

// FindByID loads a booking scoped to the asserted tenant.
func (r *Repository) FindByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", bookingID, tenantID).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, err
	}
	return &booking, nil
}

// UpdateStatus moves the booking to the given status.
func (r *Repository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status enums.BookingStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return nil
}

// CountForSlot returns how many non-canceled bookings reference the slot.
func (r *Repository) CountForSlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("slot_id = ? AND status <> ?", slotID, enums.BookingStatusCanceled).
		Count(&count).Error
	return count, err
}
