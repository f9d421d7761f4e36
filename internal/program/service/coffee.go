package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/program/domain"
)

// CoffeeState is the customer's position in the repeating stamp cycle.
type CoffeeState struct {
	Stamps      int64
	LastStampAt *time.Time
}

// StampOutcome is the pure result of applying one purchase to a cycle.
// State is the post-apply cycle position; on CycleComplete the stamp count
// has already been reset to zero.
type StampOutcome struct {
	Counted       bool
	CycleComplete bool
	State         CoffeeState
	Reason        string
}

// ApplyStamp advances the coffee cycle by one purchase. A purchase counts
// only when it clears MinSpend and either no stamp was recorded yet or
// MinTimeBetweenMinutes have elapsed since the last counted one. Reaching
// Frequency completes the cycle and resets the count.
func ApplyStamp(spec domain.CoffeeSpec, state CoffeeState, amount decimal.Decimal, now time.Time) StampOutcome {
	if amount.LessThan(spec.MinSpend) {
		return StampOutcome{State: state, Reason: "below_min_spend"}
	}
	if state.LastStampAt != nil && spec.MinTimeBetweenMinutes > 0 {
		elapsed := now.Sub(*state.LastStampAt)
		if elapsed < time.Duration(spec.MinTimeBetweenMinutes)*time.Minute {
			return StampOutcome{State: state, Reason: "too_soon"}
		}
	}

	stampedAt := now
	next := CoffeeState{Stamps: state.Stamps + 1, LastStampAt: &stampedAt}
	if next.Stamps >= int64(spec.Frequency) {
		next.Stamps = 0
		return StampOutcome{Counted: true, CycleComplete: true, State: next}
	}
	return StampOutcome{Counted: true, State: next}
}
