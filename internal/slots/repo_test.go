package slots

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	pkgerrors "github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/errors"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/migrate"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:slots_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.Run(conn))
	return conn
}

func seedSlot(t *testing.T, repo *Repository, tenantID uuid.UUID, capacity, booked int) *models.Slot {
	t.Helper()
	slot, err := repo.Create(context.Background(), &models.Slot{
		TenantID:         tenantID,
		ServiceID:        uuid.New(),
		Date:             time.Now().AddDate(0, 0, 1),
		StartTime:        "09:00",
		EndTime:          "10:00",
		OriginalCapacity: capacity,
		BookedCount:      booked,
		IsAvailable:      true,
	})
	require.NoError(t, err)
	return slot
}

func TestCreateDerivesAvailableCapacity(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 10, 3)
	assert.Equal(t, 7, slot.AvailableCapacity)
}

func TestCreatePersistsDisabledFlag(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	tenantID := uuid.New()
	slot, err := repo.Create(context.Background(), &models.Slot{
		TenantID:         tenantID,
		ServiceID:        uuid.New(),
		Date:             time.Now().AddDate(0, 0, 1),
		StartTime:        "09:00",
		EndTime:          "10:00",
		OriginalCapacity: 5,
		IsAvailable:      false,
	})
	require.NoError(t, err)

	reloaded, err := repo.FindByID(context.Background(), tenantID, slot.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAvailable, "a slot created disabled must stay disabled")
}

func TestFindByIDScopesTenant(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	tenantID := uuid.New()
	slot := seedSlot(t, repo, tenantID, 5, 0)

	found, err := repo.FindByID(context.Background(), tenantID, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, found.ID)

	_, err = repo.FindByID(context.Background(), uuid.New(), slot.ID)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestReserveMovesBothCounters(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	tenantID := uuid.New()
	slot := seedSlot(t, repo, tenantID, 5, 0)

	require.NoError(t, repo.Reserve(context.Background(), slot, 2))
	assert.Equal(t, 2, slot.BookedCount)
	assert.Equal(t, 3, slot.AvailableCapacity)

	reloaded, err := repo.FindByID(context.Background(), tenantID, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.BookedCount)
	assert.Equal(t, 3, reloaded.AvailableCapacity)
	assert.Equal(t, reloaded.OriginalCapacity, reloaded.BookedCount+reloaded.AvailableCapacity)
}

func TestReserveRejectsOverCapacity(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 5, 4)

	err := repo.Reserve(context.Background(), slot, 2)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeCapacityExceeded, domainErr.Code())

	// Counters untouched after a rejected reserve.
	assert.Equal(t, 4, slot.BookedCount)
	assert.Equal(t, 1, slot.AvailableCapacity)
}

func TestReserveExactRemainderSucceeds(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 5, 3)

	require.NoError(t, repo.Reserve(context.Background(), slot, 2))
	assert.Equal(t, 5, slot.BookedCount)
	assert.Equal(t, 0, slot.AvailableCapacity)
}

func TestReserveRejectsDisabledSlot(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	tenantID := uuid.New()
	slot := seedSlot(t, repo, tenantID, 5, 0)
	require.NoError(t, repo.SetAvailability(context.Background(), tenantID, slot.ID, false))
	slot.IsAvailable = false

	err := repo.Reserve(context.Background(), slot, 1)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeSlotUnavailable, domainErr.Code())
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 5, 0)

	for _, qty := range []int{0, -1} {
		err := repo.Reserve(context.Background(), slot, qty)
		var domainErr *pkgerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
	}
}

func TestReleaseReturnsCapacity(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 5, 3)

	require.NoError(t, repo.Release(context.Background(), slot, 2))
	assert.Equal(t, 1, slot.BookedCount)
	assert.Equal(t, 4, slot.AvailableCapacity)
}

func TestReleaseUnderflowIsFatal(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	slot := seedSlot(t, repo, uuid.New(), 5, 1)

	err := repo.Release(context.Background(), slot, 2)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeInvalidRelease, domainErr.Code())
	assert.False(t, pkgerrors.IsRetryable(err))
	assert.Equal(t, 1, slot.BookedCount)
}

func TestSetAvailabilityUnknownSlot(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	err := repo.SetAvailability(context.Background(), uuid.New(), uuid.New(), false)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestFindForUpdateLoadsRow(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	tenantID := uuid.New()
	slot := seedSlot(t, repo, tenantID, 5, 0)

	err := conn.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).FindForUpdate(context.Background(), tenantID, slot.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, slot.ID, locked.ID)
		return nil
	})
	require.NoError(t, err)
}
