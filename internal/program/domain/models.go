package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Kind identifies one of the three recurring-program shapes. At most one
// active program per kind exists per merchant.
type Kind string

const (
	KindCoffee      Kind = "coffee"
	KindVoucher     Kind = "voucher"
	KindTransaction Kind = "transaction"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCoffee, KindVoucher, KindTransaction:
		return true
	default:
		return false
	}
}

// Program is a merchant-configured recurring reward template. Spec holds
// the kind-specific shape as JSON and is cleared when the program is
// removed; Active is the authoritative "program exists" signal.
type Program struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID   `gorm:"not null;index:ix_programs_merchant_kind" json:"merchant_id"`
	Kind       Kind           `gorm:"not null;index:ix_programs_merchant_kind" json:"kind"`
	Active     bool           `gorm:"not null;default:false" json:"active"`
	PIN        string         `gorm:"column:pin;not null" json:"-"`
	Spec       datatypes.JSON `gorm:"type:jsonb" json:"spec,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	RemovedAt  *time.Time     `json:"removed_at,omitempty"`
}

func (Program) TableName() string { return "recurring_programs" }

// CoffeeSpec configures a punch-card cycle: buy frequency-1, get the
// frequency-th free. A purchase only counts toward the cycle when it
// clears MinSpend and MinTimeBetweenMinutes.
type CoffeeSpec struct {
	Frequency             int             `json:"frequency"`
	MinSpend              decimal.Decimal `json:"minSpend"`
	MinTimeBetweenMinutes int             `json:"minTimeBetweenMinutes"`
}

// VoucherSpec configures an escalating voucher ladder: level i unlocks at
// SpendRequired * i cumulative spend.
type VoucherSpec struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	SpendRequired decimal.Decimal `json:"spendRequired"`
	VoucherAmount decimal.Decimal `json:"voucherAmount"`
}

// RewardTypeVoucher and RewardTypeFreeItem are the two reward shapes a
// transaction ladder can yield.
const (
	RewardTypeVoucher  = "voucher"
	RewardTypeFreeItem = "freeItem"
)

// TransactionSpec configures a transaction-count ladder: level i unlocks
// at TransactionThreshold * i lifetime transactions, for i in
// [1, Iterations].
type TransactionSpec struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	TransactionThreshold int64           `json:"transactionThreshold"`
	Iterations           int             `json:"iterations"`
	RewardType           string          `json:"rewardType"`
	VoucherAmount        decimal.Decimal `json:"voucherAmount,omitempty"`
	FreeItemName         string          `json:"freeItemName,omitempty"`
	Conditions           string          `json:"conditions,omitempty"`
}

// RewardLevel is one rung of a materialized ladder. Thresholds ascend
// strictly; a customer's cumulative metric can only ever satisfy a prefix
// of the ladder.
type RewardLevel struct {
	Level                int             `json:"level"`
	TransactionsRequired int64           `json:"transactionsRequired,omitempty"`
	SpendRequired        decimal.Decimal `json:"spendRequired,omitempty"`
	RewardType           string          `json:"rewardType"`
	VoucherAmount        decimal.Decimal `json:"voucherAmount,omitempty"`
	FreeItemName         string          `json:"freeItemName,omitempty"`
}
