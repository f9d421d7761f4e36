package rule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Documents store conditions and limitations as arrays of
// {"type": ..., "value": ..., "enabled": ...} objects. Decoding happens
// once at the persistence boundary; evaluators only ever see typed values.
//
// An unrecognized type is not a decode error: the entry is kept as-is so
// the evaluator can fail closed on it. A recognized type with a malformed
// payload is a decode error.

type entryDoc struct {
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Enabled *bool           `json:"enabled,omitempty"`
}

func DecodeConditions(raw datatypes.JSON) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []entryDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}

	out := make([]Condition, 0, len(docs))
	for _, doc := range docs {
		c := Condition{Kind: ConditionKind(doc.Type), Enabled: true}
		if doc.Enabled != nil {
			c.Enabled = *doc.Enabled
		}

		switch c.Kind {
		case MinimumTransactions, MaximumTransactions, MinimumPointsBalance,
			DaysSinceJoined, DaysSinceLastVisit:
			v, err := decodeInt(doc.Value)
			if err != nil {
				return nil, fmt.Errorf("condition %s: %w", doc.Type, err)
			}
			c.Value = v
		case MinimumLifetimeSpend, MinimumSpend:
			amount, err := decodeAmount(doc.Value)
			if err != nil {
				return nil, fmt.Errorf("condition %s: %w", doc.Type, err)
			}
			c.Amount = amount
		case MembershipLevel:
			if err := json.Unmarshal(doc.Value, &c.Tier); err != nil {
				return nil, fmt.Errorf("condition %s: %w", doc.Type, err)
			}
		case NewCustomer:
			// no payload
		}
		out = append(out, c)
	}
	return out, nil
}

func EncodeConditions(conditions []Condition) (datatypes.JSON, error) {
	docs := make([]map[string]any, 0, len(conditions))
	for _, c := range conditions {
		doc := map[string]any{"type": string(c.Kind), "enabled": c.Enabled}
		switch c.Kind {
		case MinimumTransactions, MaximumTransactions, MinimumPointsBalance,
			DaysSinceJoined, DaysSinceLastVisit:
			doc["value"] = c.Value
		case MinimumLifetimeSpend, MinimumSpend:
			doc["value"] = c.Amount.String()
		case MembershipLevel:
			doc["value"] = c.Tier
		}
		docs = append(docs, doc)
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

type periodDoc struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type windowDoc struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func DecodeLimitations(raw datatypes.JSON) ([]Limitation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []entryDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode limitations: %w", err)
	}

	out := make([]Limitation, 0, len(docs))
	for _, doc := range docs {
		l := Limitation{Kind: LimitationKind(doc.Type)}

		switch l.Kind {
		case CustomerLimit, TotalRedemptionLimit:
			v, err := decodeInt(doc.Value)
			if err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			l.Limit = v
		case ActivePeriod:
			var period periodDoc
			if err := json.Unmarshal(doc.Value, &period); err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			start, err := time.Parse("2006-01-02", period.StartDate)
			if err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			end, err := time.Parse("2006-01-02", period.EndDate)
			if err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			l.StartDate, l.EndDate = start, end
		case TimeOfDay:
			var window windowDoc
			if err := json.Unmarshal(doc.Value, &window); err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			startMin, err := parseMinute(window.StartTime)
			if err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			endMin, err := parseMinute(window.EndTime)
			if err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			l.StartMinute, l.EndMinute = startMin, endMin
		case DaysOfWeek:
			var names []string
			if err := json.Unmarshal(doc.Value, &names); err != nil {
				return nil, fmt.Errorf("limitation %s: %w", doc.Type, err)
			}
			for _, name := range names {
				day, ok := parseDay(name)
				if !ok {
					return nil, fmt.Errorf("limitation %s: unknown day %q", doc.Type, name)
				}
				l.Days = append(l.Days, day)
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func EncodeLimitations(limitations []Limitation) (datatypes.JSON, error) {
	docs := make([]map[string]any, 0, len(limitations))
	for _, l := range limitations {
		doc := map[string]any{"type": string(l.Kind)}
		switch l.Kind {
		case CustomerLimit, TotalRedemptionLimit:
			doc["value"] = l.Limit
		case ActivePeriod:
			doc["value"] = periodDoc{
				StartDate: l.StartDate.Format("2006-01-02"),
				EndDate:   l.EndDate.Format("2006-01-02"),
			}
		case TimeOfDay:
			doc["value"] = windowDoc{
				StartTime: formatMinute(l.StartMinute),
				EndTime:   formatMinute(l.EndMinute),
			}
		case DaysOfWeek:
			names := make([]string, 0, len(l.Days))
			for _, d := range l.Days {
				names = append(names, strings.ToLower(d.String()))
			}
			doc["value"] = names
		}
		docs = append(docs, doc)
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeInt(raw json.RawMessage) (int64, error) {
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// decodeAmount accepts both JSON numbers and strings ("12.50").
func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

func parseMinute(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func parseDay(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
