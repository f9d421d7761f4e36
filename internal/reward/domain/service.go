package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/eligibility"
	"github.com/stampworks/loyalty/internal/rule"
)

type CreateRewardRequest struct {
	MerchantID  string
	Name        string
	Description string
	PointsCost  int64
	Status      Status
	Conditions  []rule.Condition
	Limitations []rule.Limitation
}

type Service interface {
	Create(context.Context, CreateRewardRequest) (Reward, error)
	GetByID(ctx context.Context, merchantID, id string) (Reward, error)
	List(ctx context.Context, merchantID string) ([]Reward, error)
	UpdateStatus(ctx context.Context, merchantID, id string, status Status) error

	// IsEligible evaluates the reward against the customer's current
	// snapshot and redemption history. amount is the current transaction
	// amount, consumed by minimumSpend conditions.
	IsEligible(ctx context.Context, merchantID, rewardID, customerID string, amount decimal.Decimal) (eligibility.Verdict, error)

	// Redeem records a redemption when the reward is currently allowed;
	// otherwise it returns ErrNotEligible alongside the denying verdict.
	Redeem(ctx context.Context, merchantID, rewardID, customerID string, amount decimal.Decimal) (Redemption, eligibility.Verdict, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNameRequired    = errors.New("name_required")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrNotFound        = errors.New("not_found")
	ErrNotEligible     = errors.New("not_eligible")
)
