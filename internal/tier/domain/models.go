package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Tier is a named, ordered membership level. Orders ascend from the
// default tier (weakest) upward; exactly one tier exists per order value
// per merchant. Conditions is a JSON array of {type, value, enabled}
// entries decoded through the rule package.
type Tier struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_tiers_merchant_order,priority:1" json:"merchant_id"`
	Name       string         `gorm:"not null" json:"name"`
	Order      int            `gorm:"column:tier_order;not null;uniqueIndex:ux_tiers_merchant_order,priority:2" json:"order"`
	IsDefault  bool           `gorm:"not null;default:false" json:"is_default"`
	IsActive   bool           `gorm:"not null;default:false" json:"is_active"`
	Conditions datatypes.JSON `gorm:"type:jsonb" json:"conditions,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tier) TableName() string { return "membership_tiers" }
