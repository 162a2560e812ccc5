package reporting

import (
	"sort"

	"github.com/google/uuid"

	"github.com/opsboard/usage_insights/backend/internal/store"
)

// RankedPolicy is one row of a quota comparison: a policy's summed
// usage against its configured limit.
type RankedPolicy struct {
	ID      uuid.UUID
	Name    string
	Total   int64
	Limit   int64
	Percent float64
}

// UsagePercent computes the clamped usage percentage. A zero limit
// means no quota is configured, which reports as 0 rather than a
// division error.
func UsagePercent(total, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	pct := float64(total) / float64(limit) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ComparePolicies joins per-policy totals with the configured limits.
// Every policy appears, including those with no usage in the window.
// Rows are ordered by descending total, ties broken by ascending name
// so top-N views are deterministic.
func ComparePolicies(totals map[uuid.UUID]int64, policies []store.Policy) []RankedPolicy {
	ranked := make([]RankedPolicy, 0, len(policies))
	for _, p := range policies {
		total := totals[p.ID]
		ranked = append(ranked, RankedPolicy{
			ID:      p.ID,
			Name:    p.Name,
			Total:   total,
			Limit:   p.TokenLimit,
			Percent: UsagePercent(total, p.TokenLimit),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total == ranked[j].Total {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].Total > ranked[j].Total
	})
	return ranked
}

// TopN truncates a ranked slice to at most n rows.
func TopN(ranked []RankedPolicy, n int) []RankedPolicy {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}

// SumLimits returns the aggregate quota across all policies.
func SumLimits(policies []store.Policy) int64 {
	var sum int64
	for _, p := range policies {
		sum += p.TokenLimit
	}
	return sum
}
