package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, program *Program) error
	Update(ctx context.Context, db *gorm.DB, program *Program) error

	// FindActive returns the merchant's single active program of kind, or
	// nil when none exists.
	FindActive(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind Kind) (*Program, error)

	ListByMerchant(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]Program, error)
}
