package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opsboard/usage_insights/backend/internal/timeutil"
)

// DB defines the database operations the postgres store uses.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	db DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps the provided pool in a read-only reporting store.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) ListUsageEvents(ctx context.Context, iv timeutil.Interval) ([]UsageEvent, error) {
	from, to := iv.Bounds()
	rows, err := s.db.Query(ctx,
		`SELECT id, policy_id, occurred_at, input_tokens, output_tokens, cached_tokens, reasoning_tokens
		 FROM usage_events
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 ORDER BY occurred_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list usage events: %w", err)
	}
	defer rows.Close()

	events := make([]UsageEvent, 0)
	for rows.Next() {
		var ev UsageEvent
		if err := rows.Scan(&ev.ID, &ev.PolicyID, &ev.OccurredAt, &ev.InputTokens, &ev.OutputTokens, &ev.CachedTokens, &ev.ReasoningTokens); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list usage events: %w", err)
	}
	return events, nil
}

func (s *Postgres) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, token_limit FROM policies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	policies := make([]Policy, 0)
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.Name, &p.TokenLimit); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return policies, nil
}

func (s *Postgres) ListPolicyMemberCounts(ctx context.Context) ([]PolicyMemberCount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.name, COUNT(m.user_id)
		 FROM policies p
		 LEFT JOIN policy_members m ON m.policy_id = p.id
		 GROUP BY p.id, p.name
		 ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("list policy member counts: %w", err)
	}
	defer rows.Close()

	counts := make([]PolicyMemberCount, 0)
	for rows.Next() {
		var c PolicyMemberCount
		if err := rows.Scan(&c.PolicyID, &c.Name, &c.UserCount); err != nil {
			return nil, fmt.Errorf("scan policy member count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list policy member counts: %w", err)
	}
	return counts, nil
}

func (s *Postgres) CountPolicyMembers(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM policy_members`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count policy members: %w", err)
	}
	return total, nil
}

func (s *Postgres) ListEventYearTotals(ctx context.Context, zone string) ([]YearTotal, error) {
	if zone == "" {
		zone = "UTC"
	}
	rows, err := s.db.Query(ctx,
		`SELECT EXTRACT(YEAR FROM occurred_at AT TIME ZONE $1)::int AS year,
		        COALESCE(SUM(input_tokens + output_tokens + cached_tokens + reasoning_tokens), 0)
		 FROM usage_events
		 GROUP BY year
		 ORDER BY year DESC`, zone)
	if err != nil {
		return nil, fmt.Errorf("list event year totals: %w", err)
	}
	defer rows.Close()

	years := make([]YearTotal, 0)
	for rows.Next() {
		var yt YearTotal
		if err := rows.Scan(&yt.Year, &yt.Total); err != nil {
			return nil, fmt.Errorf("scan year total: %w", err)
		}
		years = append(years, yt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event year totals: %w", err)
	}
	return years, nil
}
