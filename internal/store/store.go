package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opsboard/usage_insights/backend/internal/timeutil"
)

// UsageEvent is a single append-only token-usage record. The reporting
// engine only ever reads these; ingestion lives elsewhere.
type UsageEvent struct {
	ID              uuid.UUID
	PolicyID        uuid.UUID
	OccurredAt      time.Time
	InputTokens     int64
	OutputTokens    int64
	CachedTokens    int64
	ReasoningTokens int64
}

// Policy is a quota entity: a grouping unit whose consumption is
// tracked against TokenLimit. A zero limit means no quota configured.
type Policy struct {
	ID         uuid.UUID
	Name       string
	TokenLimit int64
}

// PolicyMemberCount carries the number of users attached to a policy.
type PolicyMemberCount struct {
	PolicyID  uuid.UUID
	Name      string
	UserCount int64
}

// YearTotal is the summed token usage recorded during a calendar year.
type YearTotal struct {
	Year  int
	Total int64
}

// Store is the read-only data access contract the reporting engine
// requires from its environment.
type Store interface {
	// ListUsageEvents returns events with occurred_at in [from, to).
	ListUsageEvents(ctx context.Context, iv timeutil.Interval) ([]UsageEvent, error)
	// ListPolicies returns every policy with its configured token limit.
	ListPolicies(ctx context.Context) ([]Policy, error)
	// ListPolicyMemberCounts returns per-policy user counts.
	ListPolicyMemberCounts(ctx context.Context) ([]PolicyMemberCount, error)
	// CountPolicyMembers returns the number of distinct users that
	// belong to at least one policy.
	CountPolicyMembers(ctx context.Context) (int64, error)
	// ListEventYearTotals returns the distinct calendar years present
	// in the event store with their summed usage, newest first. Years
	// are derived in the provided IANA zone.
	ListEventYearTotals(ctx context.Context, zone string) ([]YearTotal, error)
}
