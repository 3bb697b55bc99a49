package availability

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/locks"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/internal/slots"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/migrate"
)

type fixture struct {
	conn      *gorm.DB
	svc       *Service
	slots     *slots.Repository
	locks     *locks.Repository
	tenantID  uuid.UUID
	serviceID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:availability_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.Run(conn))

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return &fixture{
		conn:      conn,
		svc:       NewService(conn, logg),
		slots:     slots.NewRepository(conn),
		locks:     locks.NewRepository(conn),
		tenantID:  uuid.New(),
		serviceID: uuid.New(),
	}
}

func (f *fixture) seedSlot(t *testing.T, date time.Time, start, end string, capacity, booked int, available bool) *models.Slot {
	t.Helper()
	slot, err := f.slots.Create(context.Background(), &models.Slot{
		TenantID:         f.tenantID,
		ServiceID:        f.serviceID,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		OriginalCapacity: capacity,
		BookedCount:      booked,
		IsAvailable:      available,
	})
	require.NoError(t, err)
	return slot
}

func TestListReturnsSlotsWithEffectiveAvailability(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	slot := f.seedSlot(t, tomorrow, "10:00", "11:00", 10, 3, true)

	_, err := f.locks.Insert(context.Background(), &models.SlotLock{
		SlotID:           slot.ID,
		SessionID:        "sess-a",
		ReservedCapacity: 2,
		LockExpiresAt:    time.Now().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 5, result[0].EffectiveAvailable, "10 capacity - 3 booked - 2 held")
}

func TestListExcludesFullSlots(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	f.seedSlot(t, tomorrow, "10:00", "11:00", 5, 5, true)
	open := f.seedSlot(t, tomorrow, "12:00", "13:00", 5, 4, true)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, open.ID, result[0].ID)
}

func TestListExcludesFullyHeldSlots(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	slot := f.seedSlot(t, tomorrow, "10:00", "11:00", 5, 0, true)

	_, err := f.locks.Insert(context.Background(), &models.SlotLock{
		SlotID:           slot.ID,
		SessionID:        "sess-a",
		ReservedCapacity: 5,
		LockExpiresAt:    time.Now().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	assert.Empty(t, result, "a slot fully covered by holds is not bookable")
}

func TestListIgnoresExpiredHolds(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	slot := f.seedSlot(t, tomorrow, "10:00", "11:00", 5, 0, true)

	_, err := f.locks.Insert(context.Background(), &models.SlotLock{
		SlotID:           slot.ID,
		SessionID:        "sess-a",
		ReservedCapacity: 5,
		LockExpiresAt:    time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 5, result[0].EffectiveAvailable)
}

func TestListExcludesDisabledSlots(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	f.seedSlot(t, tomorrow, "10:00", "11:00", 5, 0, false)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestListExcludesStartedWindowsToday(t *testing.T) {
	f := newFixture(t)
	today := time.Now()
	f.seedSlot(t, today, "00:00", "00:30", 5, 0, true)
	future := f.seedSlot(t, today, "23:58", "23:59", 5, 0, true)

	f.svc.now = func() time.Time {
		return time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, today.Location())
	}

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: today,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, future.ID, result[0].ID)
}

func TestListKeepsMorningSlotsOnFutureDates(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	f.seedSlot(t, tomorrow, "00:00", "01:00", 5, 0, true)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestListScopesTenantAndService(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	f.seedSlot(t, tomorrow, "10:00", "11:00", 5, 0, true)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: uuid.New(), ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	assert.Empty(t, result)

	result, err = f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: uuid.New(), From: tomorrow,
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestListSpansDateRange(t *testing.T) {
	f := newFixture(t)
	day1 := time.Now().AddDate(0, 0, 1)
	day2 := time.Now().AddDate(0, 0, 2)
	day3 := time.Now().AddDate(0, 0, 3)
	f.seedSlot(t, day1, "10:00", "11:00", 5, 0, true)
	f.seedSlot(t, day2, "10:00", "11:00", 5, 0, true)
	f.seedSlot(t, day3, "10:00", "11:00", 5, 0, true)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: day1, To: day2,
	})
	require.NoError(t, err)
	assert.Len(t, result, 2, "inclusive range covers day1 and day2 but not day3")
}

func TestListRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	day1 := time.Now().AddDate(0, 0, 1)
	day2 := time.Now().AddDate(0, 0, 2)

	_, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: day2, To: day1,
	})
	require.Error(t, err)
}

func TestListOrdersByStartTime(t *testing.T) {
	f := newFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1)
	f.seedSlot(t, tomorrow, "14:00", "15:00", 5, 0, true)
	f.seedSlot(t, tomorrow, "09:00", "10:00", 5, 0, true)

	result, err := f.svc.List(context.Background(), Query{
		TenantID: f.tenantID, ServiceID: f.serviceID, From: tomorrow,
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "09:00", result[0].StartTime)
	assert.Equal(t, "14:00", result[1].StartTime)
}
