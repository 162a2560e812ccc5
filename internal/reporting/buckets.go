package reporting

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opsboard/usage_insights/backend/internal/timeutil"
)

var (
	ErrInvalidRange        = timeutil.ErrInvalidRange
	ErrUnsupportedGrouping = errors.New("unsupported grouping")
)

// Granularity selects the bucket width for time-sliced reports.
type Granularity string

const (
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

// ParseGranularity maps a request mode string onto a granularity.
// "annually" is accepted as an alias for yearly to match the dashboard.
func ParseGranularity(mode string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "monthly":
		return GranularityMonthly, nil
	case "quarterly":
		return GranularityQuarterly, nil
	case "annually", "yearly":
		return GranularityYearly, nil
	default:
		return "", ErrUnsupportedGrouping
	}
}

// BucketSpec is one planned time slice: a stable label plus the
// half-open [Start, End) range it covers.
type BucketSpec struct {
	Label string
	Start time.Time
	End   time.Time
}

// PlanBuckets produces the ordered, complete list of buckets the
// interval must cover at the chosen granularity. The plan depends only
// on the interval, never on data, so empty buckets still show up in
// report output with a zero total.
func PlanBuckets(iv timeutil.Interval, g Granularity) []BucketSpec {
	loc := iv.Location()
	from, to := iv.Bounds()
	multiYear := from.In(loc).Year() != to.Add(-time.Nanosecond).In(loc).Year()

	var (
		start time.Time
		step  func(time.Time) time.Time
		label func(time.Time) string
	)
	switch g {
	case GranularityQuarterly:
		start = timeutil.StartOfQuarter(from, loc)
		step = func(t time.Time) time.Time { return t.AddDate(0, 3, 0) }
		label = func(t time.Time) string {
			if multiYear {
				return fmt.Sprintf("Q%d %d", timeutil.Quarter(t), t.Year())
			}
			return fmt.Sprintf("Q%d", timeutil.Quarter(t))
		}
	case GranularityYearly:
		start = timeutil.StartOfYear(from, loc)
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
		label = func(t time.Time) string { return strconv.Itoa(t.Year()) }
	default:
		start = timeutil.StartOfMonth(from, loc)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		label = func(t time.Time) string {
			if multiYear {
				return t.Format("Jan 2006")
			}
			return t.Format("Jan")
		}
	}

	plan := make([]BucketSpec, 0, 12)
	for cur := start; cur.Before(to); cur = step(cur) {
		plan = append(plan, BucketSpec{Label: label(cur), Start: cur, End: step(cur)})
	}
	return plan
}

// truncate maps a timestamp onto the start of its bucket.
func truncate(t time.Time, g Granularity, loc *time.Location) time.Time {
	switch g {
	case GranularityQuarterly:
		return timeutil.StartOfQuarter(t, loc)
	case GranularityYearly:
		return timeutil.StartOfYear(t, loc)
	default:
		return timeutil.StartOfMonth(t, loc)
	}
}
