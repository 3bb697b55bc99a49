package locks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
)

// Repository persists temporary capacity holds. Expiry is passive: every
// aggregation filters on lock_expires_at, so an expired row stops counting
// the moment the clock passes it, whether or not it has been swept.
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

// Insert stores a new lock row.
func (r *Repository) Insert(ctx context.Context, lock *models.SlotLock) (*models.SlotLock, error) {
	if lock.ID == uuid.Nil {
		lock.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(lock).Error; err != nil {
		return nil, err
	}
	return lock, nil
}

// FindByID loads a lock row regardless of expiry.
func (r *Repository) FindByID(ctx context.Context, lockID uuid.UUID) (*models.SlotLock, error) {
	var lock models.SlotLock
	err := r.db.WithContext(ctx).First(&lock, "id = ?", lockID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lock not found")
		}
		return nil, err
	}
	return &lock, nil
}

// DeleteByID removes the lock if present. Deleting an absent lock is a no-op:
// the row may already have been consumed by a booking or swept after expiry.
func (r *Repository) DeleteByID(ctx context.Context, lockID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", lockID).
		Delete(&models.SlotLock{}).Error
}

// ActiveReservedQty sums the reserved capacity of unexpired locks on the
// slot, optionally excluding one lock (the one about to be consumed).
func (r *Repository) ActiveReservedQty(ctx context.Context, slotID uuid.UUID, now time.Time, excludeLockID *uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SlotLock{}).
		Where("slot_id = ? AND lock_expires_at > ?", slotID, now)
	if excludeLockID != nil {
		query = query.Where("id <> ?", *excludeLockID)
	}
	var total *int
	if err := query.Select("SUM(reserved_capacity)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// DeleteExpiredBefore removes lock rows that expired before the cutoff.
// Storage hygiene only; correctness never depends on this running.
func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("lock_expires_at < ?", cutoff).
		Delete(&models.SlotLock{})
	return result.RowsAffected, result.Error
}

// Validate confirms at commit time that the lock still backs the booking:
// it exists, targets the same slot, belongs to the same session, has not
// expired, and reserves at least the requested quantity.
func (r *Repository) Validate(ctx context.Context, lockID, slotID uuid.UUID, sessionID string, qty int, now time.Time) (*models.SlotLock, error) {
	lock, err := r.FindByID(ctx, lockID)
	if err != nil {
		return nil, err
	}
	if !lock.LockExpiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeLockExpired, "lock has expired").
			WithDetails(map[string]any{"lock_expires_at": lock.LockExpiresAt})
	}
	if lock.SlotID != slotID {
		return nil, pkgerrors.New(pkgerrors.CodeLockMismatch, "lock targets a different slot")
	}
	if lock.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeLockMismatch, "lock belongs to a different session")
	}
	if lock.ReservedCapacity < qty {
		return nil, pkgerrors.New(pkgerrors.CodeLockInsufficient, "lock reserves less capacity than requested").
			WithDetails(map[string]any{
				"reserved":  lock.ReservedCapacity,
				"requested": qty,
			})
	}
	return lock, nil
}
