package service

import (
	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/rule"
	"github.com/stampworks/loyalty/internal/tier/domain"
)

// ClassifyTiers assigns a snapshot to the highest-order active tier with at
// least one enabled condition that evaluates true. Tier conditions are an
// OR set: satisfying any one qualifying condition is enough. This is the
// opposite combinator from reward eligibility, which ANDs its conditions,
// and the two must stay separate.
//
// tiers must be ordered ascending. The merchant's default tier is the
// fallback when nothing matches. The second return is false only when the
// tier list has no default tier to fall back to.
func ClassifyTiers(ev *rule.Evaluator, tiers []domain.Tier, snap rule.Snapshot) (domain.Tier, bool) {
	for i := len(tiers) - 1; i >= 0; i-- {
		t := tiers[i]
		if !t.IsActive || t.IsDefault {
			continue
		}

		conditions, err := rule.DecodeConditions(t.Conditions)
		if err != nil {
			// Malformed condition documents must not make a tier
			// reachable: skip it.
			continue
		}

		for _, c := range conditions {
			if !c.Enabled {
				continue
			}
			if ev.Condition(c, snap, decimal.Zero) {
				return t, true
			}
		}
	}

	for _, t := range tiers {
		if t.IsDefault {
			return t, true
		}
	}
	return domain.Tier{}, false
}
