package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/reward/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reward *domain.Reward) error {
	return db.WithContext(ctx).Create(reward).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*domain.Reward, error) {
	var reward domain.Reward
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) ([]domain.Reward, error) {
	var rewards []domain.Reward
	err := db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at desc, id desc").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.Reward{}).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) InsertRedemption(ctx context.Context, db *gorm.DB, redemption *domain.Redemption) error {
	return db.WithContext(ctx).Create(redemption).Error
}

func (r *repo) CountRedemptions(ctx context.Context, db *gorm.DB, merchantID, rewardID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("merchant_id = ? AND reward_id = ?", merchantID, rewardID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) CountCustomerRedemptions(ctx context.Context, db *gorm.DB, merchantID, rewardID, customerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("merchant_id = ? AND reward_id = ? AND customer_id = ?", merchantID, rewardID, customerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
