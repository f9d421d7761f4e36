package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/tier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *domain.Tier) error {
	return db.WithContext(ctx).Create(tier).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tier *domain.Tier) error {
	return db.WithContext(ctx).
		Model(&domain.Tier{}).
		Where("merchant_id = ? AND id = ?", tier.MerchantID, tier.ID).
		Updates(map[string]any{
			"name":       tier.Name,
			"tier_order": tier.Order,
			"is_active":  tier.IsActive,
			"conditions": tier.Conditions,
			"updated_at": tier.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Delete(&domain.Tier{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*domain.Tier, error) {
	var tier domain.Tier
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repo) ListByMerchant(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]domain.Tier, error) {
	var tiers []domain.Tier
	err := db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("tier_order asc").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repo) CountCustomers(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT count(*) FROM customers WHERE merchant_id = ? AND current_tier_id = ?`,
		merchantID,
		id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
