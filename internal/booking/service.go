package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/slots"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/enums"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries everything needed to create a booking. LockID is
// optional; when present the booking consumes a previously acquired hold.
type CreateInput struct {
	TenantID      uuid.UUID
	ServiceID     uuid.UUID
	SlotID        uuid.UUID
	SessionID     string
	LockID        *uuid.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	AdultCount    int
	ChildCount    int
	PriceCents    int
	Notes         *string
	CreatedBy     *string
}

func (in CreateInput) visitorCount() int {
	return in.AdultCount + in.ChildCount
}

func (in CreateInput) validate() error {
	if in.ServiceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}
	if in.CustomerName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if in.CustomerPhone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	}
	if in.AdultCount < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one adult is required")
	}
	if in.ChildCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "child count cannot be negative")
	}
	if in.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if in.LockID != nil && in.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required to consume a hold")
	}
	return nil
}

// Service runs the booking transaction. All capacity decisions happen while
// the slot row lock is held, so two requests racing for the last seats are
// serialized and exactly one of them wins.
type Service struct {
	tx       txRunner
	slots    *slots.Repository
	locks    *locks.Repository
	bookings *Repository
	events   *outbox.Service
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(tx txRunner, slotRepo *slots.Repository, lockRepo *locks.Repository, bookingRepo *Repository, events *outbox.Service, logg *logger.Logger) *Service {
	return &Service{
		tx:       tx,
		slots:    slotRepo,
		locks:    lockRepo,
		bookings: bookingRepo,
		events:   events,
		logg:     logg,
		now:      time.Now,
	}
}

// Create books visitor capacity on a slot. Inside one transaction it locks
// the slot row, re-validates the optional hold against current state, checks
// effective availability, inserts the booking, moves the slot counters,
// consumes the hold and queues the created event. Any failure rolls the
// whole thing back.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx = s.logg.WithTenantID(ctx, in.TenantID.String())
	ctx = s.logg.WithSlotID(ctx, in.SlotID.String())

	qty := in.visitorCount()
	now := s.now()

	var created *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		slotRepo := s.slots.WithTx(tx)
		lockRepo := s.locks.WithTx(tx)

		slot, err := slotRepo.FindForUpdate(ctx, in.TenantID, in.SlotID)
		if err != nil {
			return err
		}
		// A slot of another service is as unknown as a slot of another tenant.
		if slot.ServiceID != in.ServiceID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}

		var consumedLock *models.SlotLock
		if in.LockID != nil {
			consumedLock, err = lockRepo.Validate(ctx, *in.LockID, slot.ID, in.SessionID, qty, now)
			if err != nil {
				return err
			}
		}

		// Holds by other sessions still count against capacity. The hold
		// being consumed does not; its units become the booking's units.
		var exclude *uuid.UUID
		if consumedLock != nil {
			exclude = &consumedLock.ID
		}
		othersQty, err := lockRepo.ActiveReservedQty(ctx, slot.ID, now, exclude)
		if err != nil {
			return err
		}
		if slot.BookedCount+othersQty+qty > slot.OriginalCapacity {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "not enough capacity left").
				WithDetails(map[string]any{
					"requested": qty,
					"available": slot.OriginalCapacity - slot.BookedCount - othersQty,
				})
		}

		if err := slotRepo.Reserve(ctx, slot, qty); err != nil {
			return err
		}

		created, err = s.bookings.WithTx(tx).Insert(ctx, &models.Booking{
			TenantID:      in.TenantID,
			ServiceID:     slot.ServiceID,
			SlotID:        slot.ID,
			CustomerName:  in.CustomerName,
			CustomerPhone: in.CustomerPhone,
			CustomerEmail: in.CustomerEmail,
			AdultCount:    in.AdultCount,
			ChildCount:    in.ChildCount,
			VisitorCount:  qty,
			PriceCents:    in.PriceCents,
			Status:        enums.BookingStatusPending,
			PaymentStatus: enums.PaymentStatusUnpaid,
			Notes:         in.Notes,
			CreatedBy:     in.CreatedBy,
		})
		if err != nil {
			return err
		}

		if consumedLock != nil {
			if err := lockRepo.DeleteByID(ctx, consumedLock.ID); err != nil {
				return err
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   created.ID,
			Actor:         actorFor(in.TenantID, in.SessionID, in.CreatedBy),
			Data: payloads.BookingCreatedEvent{
				BookingID:     created.ID,
				TenantID:      created.TenantID,
				ServiceID:     created.ServiceID,
				SlotID:        created.SlotID,
				CustomerName:  created.CustomerName,
				CustomerPhone: created.CustomerPhone,
				CustomerEmail: created.CustomerEmail,
				VisitorCount:  created.VisitorCount,
				PriceCents:    created.PriceCents,
				Date:          slot.Date,
				StartTime:     slot.StartTime,
				EndTime:       slot.EndTime,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTxConflict, err, "booking transaction conflicted, retry")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "booking_id", created.ID.String()), "booking created")
	return created, nil
}

// Cancel reverses a booking. The released units flow back into the slot's
// counters in the same transaction that flips the status, so availability
// and the cancellation are never visible separately.
func (s *Service) Cancel(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	ctx = s.logg.WithTenantID(ctx, tenantID.String())

	var canceled *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookingRepo := s.bookings.WithTx(tx)

		booking, err := bookingRepo.FindByID(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == enums.BookingStatusCanceled {
			canceled = booking
			return nil
		}
		if !booking.Status.IsCancelable() {
			return pkgerrors.New(pkgerrors.CodeConflict, "booking can no longer be canceled").
				WithDetails(map[string]any{"status": booking.Status})
		}

		slot, err := s.slots.WithTx(tx).FindForUpdate(ctx, tenantID, booking.SlotID)
		if err != nil {
			return err
		}
		if err := s.slots.WithTx(tx).Release(ctx, slot, booking.VisitorCount); err != nil {
			return err
		}
		if err := bookingRepo.UpdateStatus(ctx, booking.ID, enums.BookingStatusCanceled); err != nil {
			return err
		}
		booking.Status = enums.BookingStatusCanceled
		canceled = booking

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCanceled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         actorFor(tenantID, "", nil),
			Data: payloads.BookingCanceledEvent{
				BookingID:     booking.ID,
				TenantID:      booking.TenantID,
				SlotID:        booking.SlotID,
				CustomerName:  booking.CustomerName,
				CustomerPhone: booking.CustomerPhone,
				CustomerEmail: booking.CustomerEmail,
				VisitorCount:  booking.VisitorCount,
			},
			Version:    1,
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTxConflict, err, "cancellation conflicted, retry")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "booking_id", canceled.ID.String()), "booking canceled")
	return canceled, nil
}

// Get loads a single booking for the tenant.
func (s *Service) Get(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.FindByID(ctx, tenantID, bookingID)
}

func actorFor(tenantID uuid.UUID, sessionID string, createdBy *string) *outbox.ActorRef {
	actor := &outbox.ActorRef{TenantID: tenantID.String(), SessionID: sessionID}
	if createdBy != nil {
		actor.CreatedBy = *createdBy
	}
	return actor
}
