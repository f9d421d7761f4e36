package rule

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Evaluator evaluates conditions and limitations against a snapshot. It is
// stateless and total: an unrecognized kind evaluates to false and is
// logged as a configuration error, never raised to the caller. A reward or
// tier must never become more permissive because of a data-shape surprise.
type Evaluator struct {
	log *zap.Logger
}

func NewEvaluator(log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{log: log.Named("rule")}
}

// Condition reports whether c holds for snap. amount is the current
// transaction amount and only applies to minimumSpend.
// Numeric comparisons are inclusive.
func (e *Evaluator) Condition(c Condition, snap Snapshot, amount decimal.Decimal) bool {
	switch c.Kind {
	case MinimumTransactions:
		return snap.LifetimeTransactions >= c.Value
	case MaximumTransactions:
		return snap.LifetimeTransactions <= c.Value
	case MinimumLifetimeSpend:
		return snap.LifetimeSpend.GreaterThanOrEqual(c.Amount)
	case MinimumPointsBalance:
		return snap.PointsBalance >= c.Value
	case DaysSinceJoined:
		return int64(snap.DaysSinceJoined) >= c.Value
	case DaysSinceLastVisit:
		return int64(snap.DaysSinceLastVisit) <= c.Value
	case MembershipLevel:
		return strings.EqualFold(snap.CurrentTier, c.Tier)
	case NewCustomer:
		return snap.LifetimeTransactions == 0
	case MinimumSpend:
		return amount.GreaterThanOrEqual(c.Amount)
	default:
		e.log.Warn("unrecognized condition kind",
			zap.String("kind", string(c.Kind)),
			zap.String("customer_id", snap.CustomerID),
		)
		return false
	}
}

// Limitation reports whether l permits a redemption at now. now must
// already be in merchant-local time for timeOfDay and daysOfWeek windows.
// perCustomer and total are this customer's and the merchant-wide
// redemption counts for the reward under evaluation.
func (e *Evaluator) Limitation(l Limitation, now time.Time, perCustomer, total int64) bool {
	switch l.Kind {
	case CustomerLimit:
		return l.Limit == 0 || perCustomer < l.Limit
	case TotalRedemptionLimit:
		return l.Limit == 0 || total < l.Limit
	case ActivePeriod:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return !day.Before(l.StartDate) && !day.After(l.EndDate)
	case TimeOfDay:
		// Windows with start > end match nothing: overnight spans are
		// deliberately not wrapped.
		minute := now.Hour()*60 + now.Minute()
		return l.StartMinute <= minute && minute <= l.EndMinute
	case DaysOfWeek:
		weekday := now.Weekday()
		for _, d := range l.Days {
			if d == weekday {
				return true
			}
		}
		return false
	default:
		e.log.Warn("unrecognized limitation kind", zap.String("kind", string(l.Kind)))
		return false
	}
}
