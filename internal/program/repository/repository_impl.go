package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, program *domain.Program) error {
	return db.WithContext(ctx).Create(program).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, program *domain.Program) error {
	// Save writes all columns, which is what clearing the spec on removal
	// needs; Updates would skip the zeroed fields.
	return db.WithContext(ctx).Save(program).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind domain.Kind) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND kind = ? AND active = ?", merchantID, kind, true).
		First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *repo) ListByMerchant(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]domain.Program, error) {
	var programs []domain.Program
	err := db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at asc, id asc").
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}
