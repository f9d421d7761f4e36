package rule

import "time"

type LimitationKind string

const (
	CustomerLimit        LimitationKind = "customerLimit"
	TotalRedemptionLimit LimitationKind = "totalRedemptionLimit"
	ActivePeriod         LimitationKind = "activePeriod"
	TimeOfDay            LimitationKind = "timeOfDay"
	DaysOfWeek           LimitationKind = "daysOfWeek"
)

// Limitation is a quota or time-window predicate capping how and when a
// reward may be redeemed, independent of customer merit.
type Limitation struct {
	Kind LimitationKind

	// Limit applies to customerLimit and totalRedemptionLimit; zero means
	// unlimited.
	Limit int64

	// StartDate/EndDate bound an activePeriod, inclusive both ends.
	StartDate time.Time
	EndDate   time.Time

	// StartMinute/EndMinute bound a timeOfDay window as minutes since
	// midnight, inclusive, in merchant-local time.
	StartMinute int
	EndMinute   int

	Days []time.Weekday
}
