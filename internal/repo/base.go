package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/library-backend/pkg/db"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate returns a query that takes a row lock (SELECT ... FOR UPDATE) on
// the rows it reads. Only meaningful inside a transaction.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// FirstOrNil loads the first row matching conds into dest. A missing row is
// reported as found=false with a nil error.
func FirstOrNil(query *gorm.DB, dest any, conds ...any) (bool, error) {
	err := query.First(dest, conds...).Error
	if db.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
