package domain

import (
	"context"
	"errors"

	"github.com/stampworks/loyalty/internal/rule"
)

type SaveTierRequest struct {
	MerchantID string
	// ID is empty on create.
	ID         string
	Name       string
	Order      int
	IsActive   bool
	Conditions []rule.Condition
}

type SaveTierResult struct {
	Tier Tier

	// Demoted is a warning, not an error: the caller requested an active
	// tier but every condition was disabled, so the tier was saved
	// inactive.
	Demoted bool
}

type Service interface {
	// Classify returns the highest-order active tier whose enabled
	// conditions match the snapshot (any one suffices), falling back to
	// the merchant's default tier. Stateless and idempotent.
	Classify(ctx context.Context, merchantID string, snap rule.Snapshot) (Tier, error)

	Save(ctx context.Context, req SaveTierRequest) (SaveTierResult, error)
	Delete(ctx context.Context, merchantID, tierID string) error
	List(ctx context.Context, merchantID string) ([]Tier, error)

	// EnsureDefault creates the merchant's default tier if it does not
	// exist yet. The default tier sits at the lowest order, is always
	// active, carries no conditions and can be neither edited nor deleted.
	EnsureDefault(ctx context.Context, merchantID string) (Tier, error)
}

var (
	ErrInvalidMerchant      = errors.New("invalid_merchant")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNameRequired         = errors.New("name_required")
	ErrOrderTaken           = errors.New("order_taken")
	ErrOrderBelowDefault    = errors.New("order_below_default")
	ErrDefaultTierImmutable = errors.New("default_tier_immutable")
	ErrDefaultTierProtected = errors.New("default_tier_protected")
	ErrLowerTierInactive    = errors.New("lower_tier_inactive")
	ErrHigherTierActive     = errors.New("higher_tier_active")
	ErrTierInUse            = errors.New("tier_in_use")
	ErrNotFound             = errors.New("not_found")
)
