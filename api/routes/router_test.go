package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	availabilitysvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/availability"
	bookingsvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/booking"
	lockssvc "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/slots"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/migrate"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox"
)

type apiFixture struct {
	handler  http.Handler
	conn     *gorm.DB
	tenantID uuid.UUID
	slot     *models.Slot
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.Run(conn))

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.Locks = config.LocksConfig{
		DefaultTTL:       5 * time.Minute,
		MinTTL:           30 * time.Second,
		MaxTTL:           30 * time.Minute,
		ExpiredRetention: 24 * time.Hour,
	}

	client := db.FromGorm(conn)
	slotRepo := slots.NewRepository(conn)
	lockRepo := lockssvc.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	handler := NewRouter(RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           client,
		Bookings:     bookingsvc.NewService(client, slotRepo, lockRepo, bookingsvc.NewRepository(conn), events, logg),
		Locks:        lockssvc.NewService(client, slotRepo, lockRepo, cfg.Locks, logg),
		Availability: availabilitysvc.NewService(conn, logg),
	})

	tenantID := uuid.New()
	slot, err := slotRepo.Create(context.Background(), &models.Slot{
		TenantID:         tenantID,
		ServiceID:        uuid.New(),
		Date:             time.Now().AddDate(0, 0, 1),
		StartTime:        "10:00",
		EndTime:          "11:00",
		OriginalCapacity: 5,
		IsAvailable:      true,
	})
	require.NoError(t, err)

	return &apiFixture{handler: handler, conn: conn, tenantID: tenantID, slot: slot}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) tenantHeaders() map[string]string {
	return map[string]string{"X-Tenant-ID": f.tenantID.String()}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantHeaderRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/availability", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/availability", nil, map[string]string{"X-Tenant-ID": "not-a-uuid"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	headers := f.tenantHeaders()
	headers["X-Session-ID"] = "sess-http"

	// Hold two seats.
	rec := f.do(t, http.MethodPost, "/api/v1/slot-locks", map[string]any{
		"slot_id":  f.slot.ID,
		"quantity": 2,
	}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lockData := decodeData(t, rec)
	lockID := lockData["lock_id"].(string)

	// Consume the hold.
	rec = f.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"service_id":     f.slot.ServiceID,
		"slot_id":        f.slot.ID,
		"lock_id":        lockID,
		"customer_name":  "Mona Hassan",
		"customer_phone": "+201001234567",
		"adult_count":    2,
	}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bookingData := decodeData(t, rec)
	assert.Equal(t, "pending", bookingData["status"])
	assert.Equal(t, float64(2), bookingData["visitor_count"])
	bookingID := bookingData["booking_id"].(string)

	// Fetch it back.
	rec = f.do(t, http.MethodGet, "/api/v1/bookings/"+bookingID, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	// Availability reflects the consumed capacity.
	from := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	rec = f.do(t, http.MethodGet, "/api/v1/availability?service_id="+f.slot.ServiceID.String()+"&from="+from, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	availData := decodeData(t, rec)
	slotList := availData["slots"].([]any)
	require.Len(t, slotList, 1)
	assert.Equal(t, float64(3), slotList[0].(map[string]any)["effectiveAvailable"])

	// Cancel restores it.
	rec = f.do(t, http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "canceled", decodeData(t, rec)["status"])
}

func TestBookingValidationOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"service_id":     f.slot.ServiceID,
		"slot_id":        f.slot.ID,
		"customer_name":  "Mona Hassan",
		"customer_phone": "+201001234567",
		"adult_count":    0,
	}, f.tenantHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec)["code"])
}

func TestBookingCapacityConflictOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	headers := f.tenantHeaders()

	payload := map[string]any{
		"service_id":     f.slot.ServiceID,
		"slot_id":        f.slot.ID,
		"customer_name":  "Mona Hassan",
		"customer_phone": "+201001234567",
		"adult_count":    3,
	}
	rec := f.do(t, http.MethodPost, "/api/v1/bookings", payload, headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/bookings", payload, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	errBody := decodeError(t, rec)
	assert.Equal(t, "CAPACITY_EXCEEDED", errBody["code"])
	assert.Equal(t, false, errBody["retryable"])
}

func TestSlotLockRequiresSession(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/slot-locks", map[string]any{
		"slot_id":  f.slot.ID,
		"quantity": 1,
	}, f.tenantHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotLockReleaseIsIdempotentOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	headers := f.tenantHeaders()
	headers["X-Session-ID"] = "sess-http"

	rec := f.do(t, http.MethodPost, "/api/v1/slot-locks", map[string]any{
		"slot_id":  f.slot.ID,
		"quantity": 1,
	}, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	lockID := decodeData(t, rec)["lock_id"].(string)

	for i := 0; i < 2; i++ {
		rec = f.do(t, http.MethodDelete, "/api/v1/slot-locks/"+lockID, nil, headers)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBookingCrossTenantLooksMissing(t *testing.T) {
	f := newAPIFixture(t)
	headers := f.tenantHeaders()

	rec := f.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"service_id":     f.slot.ServiceID,
		"slot_id":        f.slot.ID,
		"customer_name":  "Mona Hassan",
		"customer_phone": "+201001234567",
		"adult_count":    1,
	}, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	bookingID := decodeData(t, rec)["booking_id"].(string)

	otherTenant := map[string]string{"X-Tenant-ID": uuid.NewString()}
	rec = f.do(t, http.MethodGet, "/api/v1/bookings/"+bookingID, nil, otherTenant)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
