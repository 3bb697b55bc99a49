package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/slots"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AcquireInput describes a request to hold capacity during checkout.
type AcquireInput struct {
	TenantID  uuid.UUID
	SlotID    uuid.UUID
	SessionID string
	Quantity  int
	TTL       time.Duration
}

// Service acquires and releases capacity holds. Acquisition runs inside a
// transaction holding the slot's row lock, so the capacity check and the
// lock insert are atomic with respect to competing sessions.
type Service struct {
	tx    txRunner
	slots *slots.Repository
	repo  *Repository
	cfg   config.LocksConfig
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(tx txRunner, slotRepo *slots.Repository, repo *Repository, cfg config.LocksConfig, logg *logger.Logger) *Service {
	return &Service{
		tx:    tx,
		slots: slotRepo,
		repo:  repo,
		cfg:   cfg,
		logg:  logg,
		now:   time.Now,
	}
}

// Acquire reserves quantity units on the slot for the session. The hold does
// not touch booked_count; it only participates in the lock-aware capacity
// check until it is consumed by a booking or expires.
func (s *Service) Acquire(ctx context.Context, in AcquireInput) (*models.SlotLock, error) {
	if in.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock quantity must be positive")
	}
	if in.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	ctx = s.logg.WithSlotID(ctx, in.SlotID.String())
	ctx = s.logg.WithSessionID(ctx, in.SessionID)

	ttl := s.cfg.Clamp(in.TTL)
	now := s.now()

	var lock *models.SlotLock
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		slot, err := s.slots.WithTx(tx).FindForUpdate(ctx, in.TenantID, in.SlotID)
		if err != nil {
			return err
		}
		if !slot.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeSlotUnavailable, "slot is disabled")
		}

		lockRepo := s.repo.WithTx(tx)
		activeQty, err := lockRepo.ActiveReservedQty(ctx, slot.ID, now, nil)
		if err != nil {
			return err
		}
		if slot.BookedCount+activeQty+in.Quantity > slot.OriginalCapacity {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "not enough capacity to hold").
				WithDetails(map[string]any{
					"requested": in.Quantity,
					"available": slot.OriginalCapacity - slot.BookedCount - activeQty,
				})
		}

		lock, err = lockRepo.Insert(ctx, &models.SlotLock{
			SlotID:           slot.ID,
			SessionID:        in.SessionID,
			ReservedCapacity: in.Quantity,
			LockExpiresAt:    now.Add(ttl),
		})
		return err
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTxConflict, err, "lock acquisition conflicted, retry")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "lock_id", lock.ID.String()), "slot lock acquired")
	return lock, nil
}

// Release drops a hold. Releasing an unknown lock id succeeds: the lock may
// have expired and been swept, or already been consumed by a booking.
func (s *Service) Release(ctx context.Context, lockID uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, lockID); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "lock_id", lockID.String()), "slot lock released")
	return nil
}
