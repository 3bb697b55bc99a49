package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/enums"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/outbox/payloads"
)

type recordingCollaborators struct {
	created  []payloads.BookingCreatedEvent
	canceled []payloads.BookingCanceledEvent
	tickets  int
	invoices int

	ticketErr    error
	messengerErr error
}

func (r *recordingCollaborators) RenderTicket(_ context.Context, event payloads.BookingCreatedEvent) error {
	if r.ticketErr != nil {
		return r.ticketErr
	}
	r.tickets++
	return nil
}

func (r *recordingCollaborators) SendBookingCreated(_ context.Context, event payloads.BookingCreatedEvent) error {
	if r.messengerErr != nil {
		return r.messengerErr
	}
	r.created = append(r.created, event)
	return nil
}

func (r *recordingCollaborators) SendBookingCanceled(_ context.Context, event payloads.BookingCanceledEvent) error {
	if r.messengerErr != nil {
		return r.messengerErr
	}
	r.canceled = append(r.canceled, event)
	return nil
}

func (r *recordingCollaborators) IssueInvoice(_ context.Context, event payloads.BookingCreatedEvent) error {
	r.invoices++
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notify_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	return conn
}

func seedEvent(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       raw,
	})
	require.NoError(t, err)
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func newTestService(conn *gorm.DB, collabs *recordingCollaborators) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	dispatcher := NewDispatcher(collabs, collabs, collabs, logg)
	return NewService(outbox.NewRepository(conn), dispatcher, config.OutboxConfig{BatchSize: 50, PollIntervalMS: 10, MaxAttempts: 3}, logg)
}

func TestProcessBatchDispatchesCreatedEvent(t *testing.T) {
	conn := newTestDB(t)
	collabs := &recordingCollaborators{}
	svc := newTestService(conn, collabs)

	bookingID := uuid.New()
	row := seedEvent(t, conn, enums.EventBookingCreated, payloads.BookingCreatedEvent{
		BookingID:     bookingID,
		CustomerName:  "Mona Hassan",
		CustomerPhone: "+201001234567",
		VisitorCount:  3,
	})

	n, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, collabs.created, 1)
	assert.Equal(t, bookingID, collabs.created[0].BookingID)
	assert.Equal(t, 1, collabs.tickets)
	assert.Equal(t, 1, collabs.invoices)

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", row.ID).Error)
	assert.NotNil(t, reloaded.PublishedAt)
}

func TestProcessBatchDispatchesCanceledEvent(t *testing.T) {
	conn := newTestDB(t)
	collabs := &recordingCollaborators{}
	svc := newTestService(conn, collabs)

	seedEvent(t, conn, enums.EventBookingCanceled, payloads.BookingCanceledEvent{
		BookingID:    uuid.New(),
		VisitorCount: 2,
	})

	_, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, collabs.canceled, 1)
	assert.Zero(t, collabs.tickets, "cancellations do not render tickets")
}

func TestProcessBatchRetriesCollaboratorFailure(t *testing.T) {
	conn := newTestDB(t)
	collabs := &recordingCollaborators{messengerErr: errors.New("gateway down")}
	svc := newTestService(conn, collabs)

	row := seedEvent(t, conn, enums.EventBookingCreated, payloads.BookingCreatedEvent{BookingID: uuid.New()})

	_, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", row.ID).Error)
	assert.Nil(t, reloaded.PublishedAt)
	assert.Equal(t, 1, reloaded.AttemptCount)
	require.NotNil(t, reloaded.LastError)
	assert.Contains(t, *reloaded.LastError, "gateway down")

	// A later poll succeeds once the collaborator recovers.
	collabs.messengerErr = nil
	_, err = svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.First(&reloaded, "id = ?", row.ID).Error)
	assert.NotNil(t, reloaded.PublishedAt)
}

func TestProcessBatchPartialCollaboratorFailureStillRuns(t *testing.T) {
	conn := newTestDB(t)
	collabs := &recordingCollaborators{ticketErr: errors.New("renderer down")}
	svc := newTestService(conn, collabs)

	seedEvent(t, conn, enums.EventBookingCreated, payloads.BookingCreatedEvent{BookingID: uuid.New()})

	_, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	// The messenger and invoicer still ran even though the ticket failed.
	assert.Len(t, collabs.created, 1)
	assert.Equal(t, 1, collabs.invoices)
}

func TestProcessBatchStopsRetryingAfterMaxAttempts(t *testing.T) {
	conn := newTestDB(t)
	collabs := &recordingCollaborators{messengerErr: errors.New("gateway down")}
	svc := newTestService(conn, collabs)

	row := seedEvent(t, conn, enums.EventBookingCreated, payloads.BookingCreatedEvent{BookingID: uuid.New()})

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessBatch(context.Background())
		require.NoError(t, err)
	}

	// Attempt budget exhausted; the row is no longer picked up.
	n, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", row.ID).Error)
	assert.Equal(t, 3, reloaded.AttemptCount)
}

func TestDispatchRejectsUnknownEventType(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	collabs := &recordingCollaborators{}
	dispatcher := NewDispatcher(collabs, collabs, collabs, logg)

	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage(`{}`)})
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), models.OutboxEvent{
		EventType: "booking.exploded",
		Payload:   envelope,
	})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestDispatchRejectsMalformedPayload(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	collabs := &recordingCollaborators{}
	dispatcher := NewDispatcher(collabs, collabs, collabs, logg)

	err := dispatcher.Dispatch(context.Background(), models.OutboxEvent{
		EventType: enums.EventBookingCreated,
		Payload:   json.RawMessage(`not json`),
	})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(conn, &recordingCollaborators{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
