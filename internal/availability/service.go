package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

// Slot is one bookable window with its lock-aware effective availability.
// EffectiveAvailable is original capacity minus booked units minus every
// unexpired hold, computed in the same query that reads the slot.
type Slot struct {
	ID                 uuid.UUID `gorm:"column:id" json:"id"`
	ServiceID          uuid.UUID `gorm:"column:service_id" json:"serviceId"`
	Date               time.Time `gorm:"column:date" json:"date"`
	StartTime          string    `gorm:"column:start_time" json:"startTime"`
	EndTime            string    `gorm:"column:end_time" json:"endTime"`
	OriginalCapacity   int       `gorm:"column:original_capacity" json:"originalCapacity"`
	BookedCount        int       `gorm:"column:booked_count" json:"-"`
	ActiveLockedQty    int       `gorm:"column:active_locked_qty" json:"-"`
	EffectiveAvailable int       `gorm:"-" json:"effectiveAvailable"`
}

// Query scopes an availability listing to one tenant, service and date
// range. To is inclusive; when zero the listing covers From's day only.
type Query struct {
	TenantID  uuid.UUID
	ServiceID uuid.UUID
	From      time.Time
	To        time.Time
}

// Service answers read-only availability questions. Results are a snapshot;
// the booking transaction re-checks everything under the row lock, so a stale
// listing can never oversell.
type Service struct {
	db   *gorm.DB
	logg *logger.Logger
	now  func() time.Time
}

func NewService(db *gorm.DB, logg *logger.Logger) *Service {
	return &Service{db: db, logg: logg, now: time.Now}
}

const listQuery = `
SELECT
    s.id,
    s.service_id,
    s.date,
    s.start_time,
    s.end_time,
    s.original_capacity,
    s.booked_count,
    COALESCE((
        SELECT SUM(l.reserved_capacity)
        FROM slot_locks l
        WHERE l.slot_id = s.id AND l.lock_expires_at > ?
    ), 0) AS active_locked_qty
FROM slots s
WHERE s.tenant_id = ?
  AND s.service_id = ?
  AND s.date >= ? AND s.date < ?
  AND s.is_available = ?
ORDER BY s.date, s.start_time
`

// List returns the slots of a service in a date range that still have
// bookable capacity. Full slots, disabled slots and windows that already
// started today are filtered out.
func (s *Service) List(ctx context.Context, q Query) ([]Slot, error) {
	if q.From.IsZero() {
		return nil, fmt.Errorf("availability start date is required")
	}
	to := q.To
	if to.IsZero() {
		to = q.From
	}
	if to.Before(q.From) {
		return nil, fmt.Errorf("availability end date precedes start date")
	}

	now := s.now()
	rangeStart := time.Date(q.From.Year(), q.From.Month(), q.From.Day(), 0, 0, 0, 0, q.From.Location())
	rangeEnd := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)

	var rows []Slot
	err := s.db.WithContext(ctx).
		Raw(listQuery, now, q.TenantID, q.ServiceID, rangeStart, rangeEnd, true).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	nowHHMM := now.Format("15:04")

	result := make([]Slot, 0, len(rows))
	for _, row := range rows {
		row.EffectiveAvailable = row.OriginalCapacity - row.BookedCount - row.ActiveLockedQty
		if row.EffectiveAvailable <= 0 {
			continue
		}
		isToday := row.Date.Year() == now.Year() && row.Date.YearDay() == now.YearDay()
		// Start times are zero-padded HH:MM, so string order is time order.
		if isToday && row.StartTime <= nowHHMM {
			continue
		}
		result = append(result, row)
	}

	ctx = s.logg.WithTenantID(ctx, q.TenantID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"service_id": q.ServiceID.String(),
		"from":       rangeStart.Format("2006-01-02"),
		"to":         rangeEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		"slots":      len(result),
	}), "availability listed")
	return result, nil
}
