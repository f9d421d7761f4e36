package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Customer, error)

	UpdateCurrentTier(ctx context.Context, db *gorm.DB, merchantID, id, tierID snowflake.ID) error
	UpdateCoffeeState(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID, stamps int64, lastStampAt *time.Time) error
	IncrementProgramTransactions(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *ProgramEvent) error

	// CountRedemptions reports the customer's total redemption count
	// across all rewards.
	CountRedemptions(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error)

	// ListIDsAfter pages through a merchant's customers in ascending ID
	// order, for cursor-based cascade batches.
	ListIDsAfter(ctx context.Context, db *gorm.DB, merchantID, afterID snowflake.ID, limit int) ([]snowflake.ID, error)

	// ClearProgramState zeroes the derived counters for kind on the given
	// customers. Re-clearing already-cleared rows is a no-op.
	ClearProgramState(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind programdomain.Kind, ids []snowflake.ID) error

	// DeleteProgramEvents removes the per-program history rows for kind on
	// the given customers. Deleting already-deleted rows is a no-op.
	DeleteProgramEvents(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind programdomain.Kind, ids []snowflake.ID) error
}
