package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/middleware"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/responses"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/validators"
	lockssvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

// SlotLockAcquire holds capacity on a slot for the caller's checkout session.
func SlotLockAcquire(svc *lockssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lock service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session header is required to hold capacity"))
			return
		}

		var payload slotLockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lock, err := svc.Acquire(r.Context(), lockssvc.AcquireInput{
			TenantID:  tenantID,
			SlotID:    payload.SlotID,
			SessionID: sessionID,
			Quantity:  payload.Quantity,
			TTL:       time.Duration(payload.TTLSeconds) * time.Second,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, slotLockResponse{
			LockID:           lock.ID,
			SlotID:           lock.SlotID,
			ReservedCapacity: lock.ReservedCapacity,
			ExpiresAt:        lock.LockExpiresAt,
		})
	}
}

// SlotLockRelease drops a hold. Safe to call twice.
func SlotLockRelease(svc *lockssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lock service unavailable"))
			return
		}

		lockID, err := validators.ParsePathUUID(chi.URLParam(r, "lockID"), "lockID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Release(r.Context(), lockID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

type slotLockRequest struct {
	SlotID     uuid.UUID `json:"slot_id" validate:"required,uuid4"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
	TTLSeconds int       `json:"ttl_seconds,omitempty" validate:"min=0"`
}

type slotLockResponse struct {
	LockID           uuid.UUID `json:"lock_id"`
	SlotID           uuid.UUID `json:"slot_id"`
	ReservedCapacity int       `json:"reserved_capacity"`
	ExpiresAt        time.Time `json:"expires_at"`
}
