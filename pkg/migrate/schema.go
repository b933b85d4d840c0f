package migrate

import (
	"fmt"

	"github.com/angelmondragon/library-backend/pkg/db/models"
	"gorm.io/gorm"
)

// activeReservationIndex matches the partial unique index in the SQL migrations.
const activeReservationIndex = `CREATE UNIQUE INDEX IF NOT EXISTS reservations_active_book_idx
	ON reservations (book_id) WHERE is_returned = false`

// AutoMigrateModels builds the schema from the gorm models. It serves the
// embedded sqlite mode, where the postgres SQL migrations do not apply.
func AutoMigrateModels(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Book{}, &models.Reservation{}); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	if err := conn.Exec(activeReservationIndex).Error; err != nil {
		return fmt.Errorf("create active reservation index: %w", err)
	}
	return nil
}
