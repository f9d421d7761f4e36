package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *Tier) error
	Update(ctx context.Context, db *gorm.DB, tier *Tier) error
	Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Tier, error)

	// ListByMerchant returns the merchant's tiers ordered ascending.
	ListByMerchant(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]Tier, error)

	// CountCustomers reports how many customers are currently classified
	// into the tier.
	CountCustomers(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error)
}
