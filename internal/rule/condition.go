package rule

import (
	"github.com/shopspring/decimal"
)

type ConditionKind string

const (
	MinimumTransactions  ConditionKind = "minimumTransactions"
	MaximumTransactions  ConditionKind = "maximumTransactions"
	MinimumLifetimeSpend ConditionKind = "minimumLifetimeSpend"
	MinimumPointsBalance ConditionKind = "minimumPointsBalance"
	DaysSinceJoined      ConditionKind = "daysSinceJoined"
	DaysSinceLastVisit   ConditionKind = "daysSinceLastVisit"
	MembershipLevel      ConditionKind = "membershipLevel"
	NewCustomer          ConditionKind = "newCustomer"
	MinimumSpend         ConditionKind = "minimumSpend"
)

// Condition is a predicate over a customer's accrued metrics. The payload
// field that applies depends on Kind: Value for count/day/point thresholds,
// Amount for spend thresholds, Tier for membershipLevel.
type Condition struct {
	Kind   ConditionKind
	Value  int64
	Amount decimal.Decimal
	Tier   string

	// Enabled mirrors the per-condition toggle membership tiers carry.
	// Disabled conditions are skipped by the tier classifier.
	Enabled bool
}
