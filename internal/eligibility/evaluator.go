package eligibility

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/observability/metrics"
	"github.com/stampworks/loyalty/internal/rule"
	"go.uber.org/zap"
)

// Verdict is the allow/deny outcome of an eligibility check. Reason is set
// on denial and is intended to be surfaced verbatim.
type Verdict struct {
	Allowed bool
	Reason  string
}

// History carries this customer's and the merchant-wide redemption counts
// for the reward under evaluation.
type History struct {
	PerCustomer int64
	Total       int64
}

type Input struct {
	Conditions  []rule.Condition
	Limitations []rule.Limitation
	Snapshot    rule.Snapshot

	// Now must be in merchant-local time.
	Now time.Time

	History History

	// Amount is the current transaction amount, consumed by minimumSpend.
	Amount decimal.Decimal
}

type Evaluator struct {
	rules   *rule.Evaluator
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(log *zap.Logger, m *metrics.Metrics) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		rules:   rule.NewEvaluator(log),
		log:     log.Named("eligibility"),
		metrics: m,
	}
}

// Evaluate checks limitations first, short-circuiting on the first failure:
// quota and window breaches must never be bypassed by a satisfied
// condition. If all limitations pass, every condition must hold.
//
// Note the combinator asymmetry with tier classification: reward
// conditions are ANDed, tier conditions are ORed. The two are kept
// separate on purpose.
func (e *Evaluator) Evaluate(in Input) Verdict {
	for _, l := range in.Limitations {
		if !e.rules.Limitation(l, in.Now, in.History.PerCustomer, in.History.Total) {
			e.metrics.ObserveEvaluation("eligibility", false)
			return Verdict{Reason: fmt.Sprintf("limitation_not_met:%s", l.Kind)}
		}
	}

	for _, c := range in.Conditions {
		if !e.rules.Condition(c, in.Snapshot, in.Amount) {
			e.metrics.ObserveEvaluation("eligibility", false)
			return Verdict{Reason: fmt.Sprintf("condition_not_met:%s", c.Kind)}
		}
	}

	e.metrics.ObserveEvaluation("eligibility", true)
	return Verdict{Allowed: true}
}
