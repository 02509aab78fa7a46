package persistence

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lockStrengthUpdate = "UPDATE"
	lockStrengthShare  = "SHARE"
)

// supportsRowLocks reports whether SELECT ... FOR UPDATE/SHARE is available.
// SQLite has a single writer and no row locks.
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// lockRows bounds the lock wait of the current transaction and returns db with
// the row lock clause applied. A zero timeout leaves the server default.
func lockRows(db *gorm.DB, strength string, timeout time.Duration) (*gorm.DB, error) {
	if timeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return db.Clauses(clause.Locking{Strength: strength}), nil
}
