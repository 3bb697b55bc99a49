package migrate

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&models.Slot{},
		&models.SlotLock{},
		&models.Booking{},
		&models.OutboxEvent{},
	}
}

// Run applies the schema for all models to the given connection.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db connection required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
