package eligibility

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/rule"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEvaluateAllConditionsMustHold(t *testing.T) {
	ev := New(zap.NewNop(), nil)
	snap := rule.Snapshot{LifetimeTransactions: 10, PointsBalance: 50}

	verdict := ev.Evaluate(Input{
		Conditions: []rule.Condition{
			{Kind: rule.MinimumTransactions, Value: 5},
			{Kind: rule.MinimumPointsBalance, Value: 100},
		},
		Snapshot: snap,
		Now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})

	assert.False(t, verdict.Allowed)
	assert.Equal(t, "condition_not_met:minimumPointsBalance", verdict.Reason)
}

func TestEvaluateAllowed(t *testing.T) {
	ev := New(zap.NewNop(), nil)
	verdict := ev.Evaluate(Input{
		Conditions: []rule.Condition{
			{Kind: rule.MinimumTransactions, Value: 5},
		},
		Limitations: []rule.Limitation{
			{Kind: rule.CustomerLimit, Limit: 2},
		},
		Snapshot: rule.Snapshot{LifetimeTransactions: 5},
		Now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		History:  History{PerCustomer: 1, Total: 40},
	})

	assert.True(t, verdict.Allowed)
	assert.Empty(t, verdict.Reason)
}

func TestEvaluateLimitationsShortCircuitConditions(t *testing.T) {
	ev := New(zap.NewNop(), nil)

	// The condition would pass; the exhausted quota must win anyway.
	verdict := ev.Evaluate(Input{
		Conditions: []rule.Condition{
			{Kind: rule.MinimumTransactions, Value: 1},
		},
		Limitations: []rule.Limitation{
			{Kind: rule.CustomerLimit, Limit: 1},
			{Kind: rule.TotalRedemptionLimit, Limit: 10},
		},
		Snapshot: rule.Snapshot{LifetimeTransactions: 100},
		Now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		History:  History{PerCustomer: 1, Total: 0},
	})

	assert.False(t, verdict.Allowed)
	assert.Equal(t, "limitation_not_met:customerLimit", verdict.Reason)
}

func TestEvaluateEmptyRulesAllow(t *testing.T) {
	ev := New(zap.NewNop(), nil)
	verdict := ev.Evaluate(Input{Now: time.Now()})
	assert.True(t, verdict.Allowed)
}

func TestEvaluateUnknownConditionDenies(t *testing.T) {
	ev := New(zap.NewNop(), nil)
	verdict := ev.Evaluate(Input{
		Conditions: []rule.Condition{{Kind: "loyaltyStreak", Value: 3}},
		Now:        time.Now(),
	})
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "condition_not_met:loyaltyStreak", verdict.Reason)
}

func TestEvaluateMinimumSpendUsesCurrentAmount(t *testing.T) {
	ev := New(zap.NewNop(), nil)
	in := Input{
		Conditions: []rule.Condition{{Kind: rule.MinimumSpend, Amount: decimal.NewFromInt(25)}},
		Now:        time.Now(),
		Amount:     decimal.NewFromInt(30),
	}
	assert.True(t, ev.Evaluate(in).Allowed)

	in.Amount = decimal.NewFromInt(20)
	assert.False(t, ev.Evaluate(in).Allowed)
}
