package rule

import "github.com/shopspring/decimal"

// Snapshot is a read-only view of one customer's accrued counters at
// evaluation time. It is assembled by the customer service; the engine
// never mutates it.
type Snapshot struct {
	CustomerID           string
	LifetimeTransactions int64
	LifetimeSpend        decimal.Decimal
	PointsBalance        int64

	// RedemptionCount is nil when the redemption counter has never been
	// materialized for this customer.
	RedemptionCount *int64

	DaysSinceJoined    int
	DaysSinceLastVisit int

	// CurrentTier is the name of the tier the customer is currently
	// classified into; membershipLevel conditions match against it
	// case-insensitively. Empty when the tier cannot be resolved.
	CurrentTier string
}
