package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/customer/domain"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) UpdateCurrentTier(ctx context.Context, db *gorm.DB, merchantID, id, tierID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Updates(map[string]any{
			"current_tier_id": tierID,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *repo) UpdateCoffeeState(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID, stamps int64, lastStampAt *time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Updates(map[string]any{
			"coffee_stamps":        stamps,
			"coffee_last_stamp_at": lastStampAt,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (r *repo) IncrementProgramTransactions(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error) {
	err := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		UpdateColumn("program_transactions", gorm.Expr("program_transactions + 1")).Error
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.WithContext(ctx).Raw(
		`SELECT program_transactions FROM customers WHERE merchant_id = ? AND id = ?`,
		merchantID, id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.ProgramEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) CountRedemptions(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT count(*) FROM reward_redemptions WHERE merchant_id = ? AND customer_id = ?`,
		merchantID, id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListIDsAfter(ctx context.Context, db *gorm.DB, merchantID, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("merchant_id = ? AND id > ?", merchantID, afterID).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ClearProgramState(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind programdomain.Kind, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	switch kind {
	case programdomain.KindCoffee:
		updates["coffee_stamps"] = 0
		updates["coffee_last_stamp_at"] = nil
	case programdomain.KindTransaction:
		updates["program_transactions"] = 0
	case programdomain.KindVoucher:
		// Voucher ladders derive from lifetime spend; no per-customer
		// counter to clear.
		return nil
	}

	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("merchant_id = ? AND id IN ?", merchantID, ids).
		Updates(updates).Error
}

func (r *repo) DeleteProgramEvents(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, kind programdomain.Kind, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("merchant_id = ? AND kind = ? AND customer_id IN ?", merchantID, kind, ids).
		Delete(&domain.ProgramEvent{}).Error
}
