package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/middleware"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/responses"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/validators"
	availabilitysvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/availability"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

// AvailabilityList returns the bookable slots of a service in a date range.
// The to parameter is optional; a single from date lists that day only.
func AvailabilityList(svc *availabilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		serviceID, err := validators.ParseQueryUUID(r, "service_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to := from
		if r.URL.Query().Get("to") != "" {
			to, err = validators.ParseQueryDate(r, "to")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		slots, err := svc.List(r.Context(), availabilitysvc.Query{
			TenantID:  tenantID,
			ServiceID: serviceID,
			From:      from,
			To:        to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"slots": slots})
	}
}
