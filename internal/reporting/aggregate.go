package reporting

import (
	"github.com/google/uuid"

	"github.com/opsboard/usage_insights/backend/internal/store"
	"github.com/opsboard/usage_insights/backend/internal/timeutil"
)

// Bucket is one time slice of a report series.
type Bucket struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// Aggregation is the result of bucketing a window of events. Skipped
// counts events dropped for unusable timestamps; it is a data-quality
// signal, not a failure.
type Aggregation struct {
	Buckets []Bucket
	Plan    []BucketSpec
	Total   int64
	Skipped int
}

// EventTotal sums an event's metric columns. Reasoning tokens are
// included only for consumers that want the full breakdown.
func EventTotal(ev store.UsageEvent, includeReasoning bool) int64 {
	total := ev.InputTokens + ev.OutputTokens + ev.CachedTokens
	if includeReasoning {
		total += ev.ReasoningTokens
	}
	return total
}

// Aggregate assigns each in-window event to exactly one bucket by
// truncating its timestamp to the granularity, then walks the plan so
// buckets with no events still appear with a zero total. Events at or
// past the interval's end are excluded even when truncation would map
// them to a planned bucket.
func Aggregate(events []store.UsageEvent, iv timeutil.Interval, g Granularity, includeReasoning bool) Aggregation {
	loc := iv.Location()
	plan := PlanBuckets(iv, g)

	sums := make(map[int64]int64, len(plan))
	agg := Aggregation{Plan: plan}
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			agg.Skipped++
			continue
		}
		if !iv.Contains(ev.OccurredAt) {
			continue
		}
		key := truncate(ev.OccurredAt, g, loc).Unix()
		total := EventTotal(ev, includeReasoning)
		sums[key] += total
		agg.Total += total
	}

	agg.Buckets = make([]Bucket, 0, len(plan))
	for _, spec := range plan {
		agg.Buckets = append(agg.Buckets, Bucket{Label: spec.Label, Total: sums[spec.Start.Unix()]})
	}
	return agg
}

// SumWindow is the degenerate single-bucket mode: one total over the
// whole interval, with the same filtering and skip rules as Aggregate.
func SumWindow(events []store.UsageEvent, iv timeutil.Interval, includeReasoning bool) (int64, int) {
	var total int64
	var skipped int
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			skipped++
			continue
		}
		if !iv.Contains(ev.OccurredAt) {
			continue
		}
		total += EventTotal(ev, includeReasoning)
	}
	return total, skipped
}

// TotalsByPolicy folds the window into one summed total per policy.
func TotalsByPolicy(events []store.UsageEvent, iv timeutil.Interval, includeReasoning bool) (map[uuid.UUID]int64, int) {
	totals := make(map[uuid.UUID]int64)
	var skipped int
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			skipped++
			continue
		}
		if !iv.Contains(ev.OccurredAt) {
			continue
		}
		totals[ev.PolicyID] += EventTotal(ev, includeReasoning)
	}
	return totals, skipped
}
