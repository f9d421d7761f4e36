package service

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/program/domain"
)

// GenerateLadder expands a program definition into its ordered reward
// levels. The expansion is pure: the same definition always yields the same
// ladder. Thresholds ascend strictly, so a customer's cumulative metric can
// only satisfy a prefix of the result.
//
// Coffee programs have no ladder (a single repeating cycle) and return nil.
func GenerateLadder(p domain.Program) ([]domain.RewardLevel, error) {
	switch p.Kind {
	case domain.KindCoffee:
		return nil, nil

	case domain.KindVoucher:
		var spec domain.VoucherSpec
		if err := json.Unmarshal(p.Spec, &spec); err != nil {
			return nil, err
		}
		return voucherLadder(spec), nil

	case domain.KindTransaction:
		var spec domain.TransactionSpec
		if err := json.Unmarshal(p.Spec, &spec); err != nil {
			return nil, err
		}
		return transactionLadder(spec), nil

	default:
		return nil, domain.ErrUnknownKind
	}
}

// voucherLadder derives the level count from the spec itself: one level per
// full voucher amount contained in the spend requirement, never fewer than
// one. Level i unlocks at spendRequired × i.
func voucherLadder(spec domain.VoucherSpec) []domain.RewardLevel {
	count := int64(1)
	if spec.VoucherAmount.IsPositive() {
		if n := spec.SpendRequired.Div(spec.VoucherAmount).IntPart(); n > 1 {
			count = n
		}
	}

	levels := make([]domain.RewardLevel, 0, count)
	for i := int64(1); i <= count; i++ {
		levels = append(levels, domain.RewardLevel{
			Level:         int(i),
			SpendRequired: spec.SpendRequired.Mul(decimal.NewFromInt(i)),
			RewardType:    domain.RewardTypeVoucher,
			VoucherAmount: spec.VoucherAmount,
		})
	}
	return levels
}

// transactionLadder materializes exactly Iterations levels; level i unlocks
// at threshold × i lifetime transactions.
func transactionLadder(spec domain.TransactionSpec) []domain.RewardLevel {
	levels := make([]domain.RewardLevel, 0, spec.Iterations)
	for i := 1; i <= spec.Iterations; i++ {
		level := domain.RewardLevel{
			Level:                i,
			TransactionsRequired: spec.TransactionThreshold * int64(i),
			RewardType:           spec.RewardType,
		}
		switch spec.RewardType {
		case domain.RewardTypeVoucher:
			level.VoucherAmount = spec.VoucherAmount
		case domain.RewardTypeFreeItem:
			level.FreeItemName = spec.FreeItemName
		}
		levels = append(levels, level)
	}
	return levels
}
