package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	"gorm.io/datatypes"
)

// Customer carries the accrued loyalty counters plus the per-program
// derived state that recurring programs maintain and program removal
// clears. The lifetime counters are owned by the external transaction
// processor; the engine reads them through snapshots.
type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	Name       string       `gorm:"not null" json:"name"`
	Email      string       `gorm:"not null" json:"email"`

	JoinedAt    time.Time  `gorm:"not null" json:"joined_at"`
	LastVisitAt *time.Time `json:"last_visit_at,omitempty"`

	LifetimeTransactions int64           `gorm:"not null;default:0" json:"lifetime_transactions"`
	LifetimeSpend        decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"lifetime_spend"`
	PointsBalance        int64           `gorm:"not null;default:0" json:"points_balance"`

	CurrentTierID snowflake.ID `gorm:"index" json:"current_tier_id"`

	// Derived per-program state, cleared by cascade cleanup on program
	// removal.
	CoffeeStamps        int64      `gorm:"not null;default:0" json:"coffee_stamps"`
	CoffeeLastStampAt   *time.Time `json:"coffee_last_stamp_at,omitempty"`
	ProgramTransactions int64      `gorm:"not null;default:0" json:"program_transactions"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// ProgramEvent is a customer's nested per-program history entry (coffee
// stamps, ladder level credits). Program removal deletes these in batches.
type ProgramEvent struct {
	ID         snowflake.ID       `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID       `gorm:"not null;index" json:"merchant_id"`
	CustomerID snowflake.ID       `gorm:"not null;index" json:"customer_id"`
	Kind       programdomain.Kind `gorm:"not null" json:"kind"`
	Type       string             `gorm:"not null" json:"type"`
	Amount     decimal.Decimal    `gorm:"type:numeric;not null;default:0" json:"amount"`
	OccurredAt time.Time          `gorm:"not null" json:"occurred_at"`
}

func (ProgramEvent) TableName() string { return "program_events" }

const (
	EventStamp         = "stamp"
	EventCycleComplete = "cycle_complete"
	EventLevelUnlocked = "level_unlocked"
)
