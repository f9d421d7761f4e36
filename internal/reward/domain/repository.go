package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reward *Reward) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Reward, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]Reward, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID, status Status) error

	InsertRedemption(ctx context.Context, db *gorm.DB, redemption *Redemption) error
	CountRedemptions(ctx context.Context, db *gorm.DB, merchantID, rewardID snowflake.ID) (int64, error)
	CountCustomerRedemptions(ctx context.Context, db *gorm.DB, merchantID, rewardID, customerID snowflake.ID) (int64, error)
}
