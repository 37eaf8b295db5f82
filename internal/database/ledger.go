// internal/database/ledger.go
package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

// unitLockKey identifies the Postgres advisory lock held by every unit, so
// units from separate server processes sharing one database also run one
// at a time.
const unitLockKey int64 = 0x49505278

// unitLockSQL returns the statement that takes the cross-process unit lock
// for the named dialect, or "" when the dialect has none.
func unitLockSQL(dialect string) string {
	if dialect == "postgres" {
		return "SELECT pg_advisory_xact_lock(?)"
	}
	return ""
}

// Ledger serialises state-changing units of work. Each unit runs inside one
// transaction that travels in the context, so collaborators called during
// the unit read and write the same snapshot. A failed unit commits nothing.
// Within a process units queue on a mutex; on Postgres they also hold a
// transaction-scoped advisory lock, which serialises replicas.
type Ledger struct {
	mu sync.Mutex
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Execute runs fn as a single all-or-nothing unit. Calls made from inside
// a running unit join it instead of starting a new one.
func (l *Ledger) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if InUnit(ctx) {
		return fn(ctx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return WithTransaction(l.db.WithContext(ctx), func(tx *gorm.DB) error {
		if stmt := unitLockSQL(tx.Dialector.Name()); stmt != "" {
			if err := tx.Exec(stmt, unitLockKey).Error; err != nil {
				return fmt.Errorf("failed to take unit lock: %w", err)
			}
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// DB returns the unit's transaction when ctx carries one, otherwise a
// session bound to ctx.
func (l *Ledger) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return l.db.WithContext(ctx)
}

func InUnit(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
