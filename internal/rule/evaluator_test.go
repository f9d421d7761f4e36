package rule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConditionEvaluation(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	snap := Snapshot{
		CustomerID:           "1",
		LifetimeTransactions: 10,
		LifetimeSpend:        decimal.NewFromInt(250),
		PointsBalance:        120,
		DaysSinceJoined:      30,
		DaysSinceLastVisit:   5,
		CurrentTier:          "Silver",
	}

	tests := []struct {
		name      string
		condition Condition
		amount    decimal.Decimal
		want      bool
	}{
		{"min transactions met", Condition{Kind: MinimumTransactions, Value: 10}, decimal.Zero, true},
		{"min transactions not met", Condition{Kind: MinimumTransactions, Value: 11}, decimal.Zero, false},
		{"max transactions met", Condition{Kind: MaximumTransactions, Value: 10}, decimal.Zero, true},
		{"max transactions exceeded", Condition{Kind: MaximumTransactions, Value: 9}, decimal.Zero, false},
		{"min lifetime spend inclusive", Condition{Kind: MinimumLifetimeSpend, Amount: decimal.NewFromInt(250)}, decimal.Zero, true},
		{"min lifetime spend not met", Condition{Kind: MinimumLifetimeSpend, Amount: decimal.NewFromFloat(250.01)}, decimal.Zero, false},
		{"min points met", Condition{Kind: MinimumPointsBalance, Value: 100}, decimal.Zero, true},
		{"min points not met", Condition{Kind: MinimumPointsBalance, Value: 121}, decimal.Zero, false},
		{"days since joined at least", Condition{Kind: DaysSinceJoined, Value: 30}, decimal.Zero, true},
		{"days since joined too recent", Condition{Kind: DaysSinceJoined, Value: 31}, decimal.Zero, false},
		{"days since last visit within", Condition{Kind: DaysSinceLastVisit, Value: 5}, decimal.Zero, true},
		{"days since last visit lapsed", Condition{Kind: DaysSinceLastVisit, Value: 4}, decimal.Zero, false},
		{"membership level case insensitive", Condition{Kind: MembershipLevel, Tier: "silver"}, decimal.Zero, true},
		{"membership level mismatch", Condition{Kind: MembershipLevel, Tier: "Gold"}, decimal.Zero, false},
		{"returning customer is not new", Condition{Kind: NewCustomer}, decimal.Zero, false},
		{"min spend on current amount", Condition{Kind: MinimumSpend, Amount: decimal.NewFromInt(20)}, decimal.NewFromInt(20), true},
		{"min spend below current amount", Condition{Kind: MinimumSpend, Amount: decimal.NewFromInt(20)}, decimal.NewFromFloat(19.99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Condition(tt.condition, snap, tt.amount))
		})
	}
}

func TestNewCustomerCondition(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	snap := Snapshot{LifetimeTransactions: 0}
	assert.True(t, ev.Condition(Condition{Kind: NewCustomer}, snap, decimal.Zero))
}

func TestUnknownConditionKindFailsClosed(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	got := ev.Condition(Condition{Kind: "pointsMultiplier", Value: 2}, Snapshot{}, decimal.Zero)
	assert.False(t, got)
}

func TestLimitationQuotas(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, ev.Limitation(Limitation{Kind: CustomerLimit, Limit: 3}, now, 2, 100))
	assert.False(t, ev.Limitation(Limitation{Kind: CustomerLimit, Limit: 3}, now, 3, 100))
	assert.True(t, ev.Limitation(Limitation{Kind: TotalRedemptionLimit, Limit: 101}, now, 0, 100))
	assert.False(t, ev.Limitation(Limitation{Kind: TotalRedemptionLimit, Limit: 100}, now, 0, 100))

	// Zero means unlimited, not "zero redemptions allowed".
	assert.True(t, ev.Limitation(Limitation{Kind: CustomerLimit, Limit: 0}, now, 9999, 9999))
	assert.True(t, ev.Limitation(Limitation{Kind: TotalRedemptionLimit, Limit: 0}, now, 9999, 9999))
}

func TestLimitationActivePeriod(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	l := Limitation{
		Kind:      ActivePeriod,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	// Inclusive on both ends, regardless of time of day.
	assert.True(t, ev.Limitation(l, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 0, 0))
	assert.True(t, ev.Limitation(l, time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(l, time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(l, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), 0, 0))
}

func TestLimitationTimeOfDay(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	lunch := Limitation{Kind: TimeOfDay, StartMinute: 11 * 60, EndMinute: 14 * 60}

	assert.True(t, ev.Limitation(lunch, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC), 0, 0))
	assert.True(t, ev.Limitation(lunch, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(lunch, time.Date(2026, 3, 10, 14, 1, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(lunch, time.Date(2026, 3, 10, 10, 59, 0, 0, time.UTC), 0, 0))
}

func TestLimitationTimeOfDayDoesNotWrapMidnight(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	overnight := Limitation{Kind: TimeOfDay, StartMinute: 22 * 60, EndMinute: 2 * 60}

	// start > end matches nothing, even inside the would-be wrapped span.
	assert.False(t, ev.Limitation(overnight, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(overnight, time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), 0, 0))
	assert.False(t, ev.Limitation(overnight, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), 0, 0))
}

func TestLimitationDaysOfWeek(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	weekend := Limitation{Kind: DaysOfWeek, Days: []time.Weekday{time.Saturday, time.Sunday}}

	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.True(t, ev.Limitation(weekend, saturday, 0, 0))
	assert.False(t, ev.Limitation(weekend, monday, 0, 0))
}

func TestUnknownLimitationKindFailsClosed(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	assert.False(t, ev.Limitation(Limitation{Kind: "perTableLimit", Limit: 1}, time.Now(), 0, 0))
}
