package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/responses"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

const (
	tenantIDHeader  = "X-Tenant-ID"
	sessionIDHeader = "X-Session-ID"
)

// TenantContext requires a tenant id header on every request and makes it,
// plus the optional checkout session id, available to handlers. Every query
// downstream is scoped by this tenant.
func TenantContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(tenantIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant header is required"))
				return
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant header must be a uuid"))
				return
			}

			ctx := WithTenantID(r.Context(), tenantID)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenantID.String())
			}

			if sessionID := r.Header.Get(sessionIDHeader); sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
