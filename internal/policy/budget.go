package policy

import (
	"sort"
	"strings"

	"github.com/ludo-technologies/connscan/domain"
)

// BudgetTotal is the budget key limiting the overall violation count
const BudgetTotal = "total_violations"

// BudgetUsage is the state of one budget key
type BudgetUsage struct {
	Key       string `json:"key" yaml:"key"`
	Limit     int    `json:"limit" yaml:"limit"`
	Usage     int    `json:"usage" yaml:"usage"`
	Remaining int    `json:"remaining" yaml:"remaining"`
	Compliant bool   `json:"compliant" yaml:"compliant"`
}

// BudgetReport is the result of checking every budget
type BudgetReport struct {
	Compliant bool          `json:"compliant" yaml:"compliant"`
	Budgets   []BudgetUsage `json:"budgets" yaml:"budgets"`
}

// Exceeded returns the budgets over their limit
func (r BudgetReport) Exceeded() []BudgetUsage {
	var out []BudgetUsage
	for _, b := range r.Budgets {
		if !b.Compliant {
			out = append(out, b)
		}
	}
	return out
}

// Budgets limits violation counts by total, severity or connascence type
type Budgets struct {
	limits map[string]int
}

// NewBudgets validates budget keys and limits
func NewBudgets(limits map[string]int) (*Budgets, error) {
	b := &Budgets{limits: make(map[string]int, len(limits))}
	for key, limit := range limits {
		norm, ok := normalizeBudgetKey(key)
		if !ok {
			return nil, domain.NewConfigError("budgets."+key, "unknown budget key")
		}
		if limit < 0 {
			return nil, domain.NewConfigError("budgets."+key, "limit must be >= 0, got %d", limit)
		}
		b.limits[norm] = limit
	}
	return b, nil
}

// Empty reports whether no budgets are configured
func (b *Budgets) Empty() bool { return b == nil || len(b.limits) == 0 }

func normalizeBudgetKey(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == BudgetTotal {
		return k, true
	}
	if domain.Severity(k).IsValid() {
		return k, true
	}
	if t, ok := domain.ParseConnascenceType(k); ok {
		return string(t), true
	}
	return "", false
}

// Check compares violation counts against every budget
func (b *Budgets) Check(violations []domain.Violation) BudgetReport {
	report := BudgetReport{Compliant: true}
	if b.Empty() {
		return report
	}

	usage := map[string]int{BudgetTotal: len(violations)}
	for _, v := range violations {
		usage[string(v.Severity)]++
		usage[string(v.ConnascenceType)]++
	}

	keys := make([]string, 0, len(b.limits))
	for k := range b.limits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		limit, used := b.limits[k], usage[k]
		u := BudgetUsage{
			Key:       k,
			Limit:     limit,
			Usage:     used,
			Remaining: limit - used,
			Compliant: used <= limit,
		}
		if !u.Compliant {
			report.Compliant = false
		}
		report.Budgets = append(report.Budgets, u)
	}
	return report
}
