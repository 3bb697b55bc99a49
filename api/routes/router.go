package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/controllers"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/api/middleware"
	availabilitysvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/availability"
	bookingsvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/booking"
	lockssvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Bookings     *bookingsvc.Service
	Locks        *lockssvc.Service
	Availability *availabilitysvc.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	ready := controllers.HealthReady(cfg, logg, params.DB, nil)
	if params.Redis != nil {
		ready = controllers.HealthReady(cfg, logg, params.DB, params.Redis)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", ready)
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext(logg))

		r.Get("/availability", controllers.AvailabilityList(params.Availability, logg))

		r.Route("/slot-locks", func(r chi.Router) {
			r.Post("/", controllers.SlotLockAcquire(params.Locks, logg))
			r.Delete("/{lockID}", controllers.SlotLockRelease(params.Locks, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingCreate(params.Bookings, logg))
			r.Get("/{bookingID}", controllers.BookingDetail(params.Bookings, logg))
			r.Post("/{bookingID}/cancel", controllers.BookingCancel(params.Bookings, logg))
		})
	})

	return r
}
