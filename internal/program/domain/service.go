package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateProgramRequest carries exactly one kind-specific spec matching Kind.
type CreateProgramRequest struct {
	MerchantID string
	Kind       Kind
	PIN        string

	Coffee      *CoffeeSpec
	Voucher     *VoucherSpec
	Transaction *TransactionSpec
}

// StampResult reports the outcome of one coffee purchase. Counted is false
// when the purchase did not clear the spec's gates; Reason says which gate
// held it back.
type StampResult struct {
	Counted       bool
	Stamps        int64
	CycleComplete bool
	Reason        string
}

// RecordTransactionResult reports the customer's ladder progress after one
// transaction. Unlocked is non-nil when the new count landed exactly on a
// ladder threshold.
type RecordTransactionResult struct {
	Count    int64
	Unlocked *RewardLevel
}

type Service interface {
	Create(context.Context, CreateProgramRequest) (Program, error)
	GetActive(ctx context.Context, merchantID string, kind Kind) (Program, error)

	// Ladder expands the merchant's active program of kind into its reward
	// levels. Coffee programs have no ladder and return nil.
	Ladder(ctx context.Context, merchantID string, kind Kind) ([]RewardLevel, error)

	// Remove deactivates the program and clears its spec as the
	// authoritative removal signal, then enqueues the per-customer cleanup.
	// Removing an already-removed kind succeeds without side effects.
	Remove(ctx context.Context, merchantID string, kind Kind) error

	// Stamp applies one coffee purchase. The pin must match the active
	// coffee program's PIN.
	Stamp(ctx context.Context, merchantID, customerID, pin string, amount decimal.Decimal) (StampResult, error)

	// RecordTransaction advances the customer's transaction-ladder counter.
	RecordTransaction(ctx context.Context, merchantID, customerID string, amount decimal.Decimal) (RecordTransactionResult, error)
}

// CleanupEnqueuer schedules the batched per-customer cascade that follows a
// program removal. Enqueue runs inside the removal transaction.
type CleanupEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID, kind Kind) error
}

var (
	ErrInvalidMerchant   = errors.New("invalid_merchant")
	ErrInvalidID         = errors.New("invalid_id")
	ErrUnknownKind       = errors.New("unknown_kind")
	ErrProgramExists     = errors.New("program_exists")
	ErrInvalidPIN        = errors.New("invalid_pin")
	ErrInvalidFrequency  = errors.New("invalid_frequency")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidThreshold  = errors.New("invalid_threshold")
	ErrInvalidIterations = errors.New("invalid_iterations")
	ErrInvalidRewardType = errors.New("invalid_reward_type")
	ErrNotFound          = errors.New("not_found")
)
