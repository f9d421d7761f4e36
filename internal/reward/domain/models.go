package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDraft, StatusArchived:
		return true
	default:
		return false
	}
}

// Reward gates redemption behind conditions (customer merit, ANDed) and
// limitations (quotas and windows, all must pass). Both are stored as JSON
// documents and decoded through the rule package.
type Reward struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	MerchantID  snowflake.ID   `gorm:"not null;index" json:"merchant_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description,omitempty"`
	PointsCost  int64          `gorm:"not null;default:0" json:"points_cost"`
	Status      Status         `gorm:"not null;default:'draft'" json:"status"`
	Conditions  datatypes.JSON `gorm:"type:jsonb" json:"conditions,omitempty"`
	Limitations datatypes.JSON `gorm:"type:jsonb" json:"limitations,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Reward) TableName() string { return "rewards" }

type Redemption struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	RewardID   snowflake.ID `gorm:"not null;index" json:"reward_id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	RedeemedAt time.Time    `gorm:"not null" json:"redeemed_at"`
}

func (Redemption) TableName() string { return "reward_redemptions" }
