package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/middleware"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/responses"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/validators"
	bookingsvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/booking"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

// BookingCreate runs the booking transaction for the tenant in context.
func BookingCreate(svc *bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		var payload bookingCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Create(r.Context(), bookingsvc.CreateInput{
			TenantID:      tenantID,
			ServiceID:     payload.ServiceID,
			SlotID:        payload.SlotID,
			SessionID:     middleware.SessionIDFromContext(r.Context()),
			LockID:        payload.LockID,
			CustomerName:  payload.CustomerName,
			CustomerPhone: payload.CustomerPhone,
			CustomerEmail: payload.CustomerEmail,
			AdultCount:    payload.AdultCount,
			ChildCount:    payload.ChildCount,
			PriceCents:    payload.PriceCents,
			Notes:         payload.Notes,
			CreatedBy:     payload.CreatedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newBookingResponse(booking))
	}
}

// BookingCancel reverses a booking and returns its capacity to the slot.
func BookingCancel(svc *bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingID"), "bookingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Cancel(r.Context(), tenantID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBookingResponse(booking))
	}
}

// BookingDetail fetches one booking.
func BookingDetail(svc *bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingID"), "bookingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Get(r.Context(), tenantID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBookingResponse(booking))
	}
}

type bookingCreateRequest struct {
	ServiceID     uuid.UUID  `json:"service_id" validate:"required,uuid4"`
	SlotID        uuid.UUID  `json:"slot_id" validate:"required,uuid4"`
	LockID        *uuid.UUID `json:"lock_id,omitempty" validate:"omitempty,uuid4"`
	CustomerName  string     `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string     `json:"customer_phone" validate:"required,max=32"`
	CustomerEmail *string    `json:"customer_email,omitempty" validate:"omitempty,email"`
	AdultCount    int        `json:"adult_count" validate:"required,min=1"`
	ChildCount    int        `json:"child_count" validate:"min=0"`
	PriceCents    int        `json:"price_cents" validate:"min=0"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	CreatedBy     *string    `json:"created_by,omitempty" validate:"omitempty,max=200"`
}

type bookingResponse struct {
	BookingID     uuid.UUID `json:"booking_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail *string   `json:"customer_email,omitempty"`
	AdultCount    int       `json:"adult_count"`
	ChildCount    int       `json:"child_count"`
	VisitorCount  int       `json:"visitor_count"`
	PriceCents    int       `json:"price_cents"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

func newBookingResponse(booking *models.Booking) bookingResponse {
	if booking == nil {
		return bookingResponse{}
	}
	return bookingResponse{
		BookingID:     booking.ID,
		SlotID:        booking.SlotID,
		ServiceID:     booking.ServiceID,
		CustomerName:  booking.CustomerName,
		CustomerPhone: booking.CustomerPhone,
		CustomerEmail: booking.CustomerEmail,
		AdultCount:    booking.AdultCount,
		ChildCount:    booking.ChildCount,
		VisitorCount:  booking.VisitorCount,
		PriceCents:    booking.PriceCents,
		Status:        booking.Status.String(),
		PaymentStatus: booking.PaymentStatus.String(),
		CreatedAt:     booking.CreatedAt,
	}
}
