package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/opsboard/usage_insights/backend/internal/store"
	"github.com/opsboard/usage_insights/backend/internal/timeutil"
)

// Service assembles dashboard report payloads from the read-only store.
// It holds no mutable state; every call is a pure function of its
// inputs plus the store.
type Service struct {
	store store.Store
	loc   *time.Location

	// OnSkippedEvents, when set, receives the count of events dropped
	// for unusable timestamps so callers can surface a metric.
	OnSkippedEvents func(int)

	now func() time.Time
}

// NewService builds a reporting service anchored to the reporting
// timezone (UTC when nil).
func NewService(st store.Store, loc *time.Location) *Service {
	return &Service{
		store: st,
		loc:   timeutil.EnsureLocation(loc),
		now:   time.Now,
	}
}

func (s *Service) location() *time.Location {
	if s == nil || s.loc == nil {
		return time.UTC
	}
	return s.loc
}

func (s *Service) recordSkipped(n int) {
	if n > 0 && s.OnSkippedEvents != nil {
		s.OnSkippedEvents(n)
	}
}

// MonthlyPoint is one month of the monthly usage series.
type MonthlyPoint struct {
	Month int   `json:"month"`
	Total int64 `json:"total"`
}

// MonthlySeriesReport is the month-by-month usage chart payload.
type MonthlySeriesReport struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Points []MonthlyPoint `json:"points"`
}

// TokenUsageReport compares bucketed usage against the aggregate quota.
// Limit repeats the flat aggregate limit once per label so chart
// libraries can overlay it directly.
type TokenUsageReport struct {
	Mode   string   `json:"mode"`
	Year   int      `json:"year"`
	Labels []string `json:"labels"`
	Usage  []int64  `json:"usage"`
	Limit  []int64  `json:"limit"`
}

// PolicyUsageRow is one policy's usage against its own limit.
type PolicyUsageRow struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Total   int64   `json:"total"`
	Limit   int64   `json:"limit"`
	Percent float64 `json:"percent"`
}

// PolicyUsageMeta summarizes the comparison table.
type PolicyUsageMeta struct {
	PolicyCount int   `json:"policy_count"`
	UsageTotal  int64 `json:"usage_total"`
	LimitTotal  int64 `json:"limit_total"`
}

// PolicyUsageReport is the policy-vs-limit breakdown payload.
type PolicyUsageReport struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Period string           `json:"period"`
	Rows   []PolicyUsageRow `json:"rows"`
	Meta   PolicyUsageMeta  `json:"meta"`
}

// UserBreakdownRow is one policy's share of the user population.
type UserBreakdownRow struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UserCount int64   `json:"user_count"`
	Percent   float64 `json:"percent"`
}

// UserBreakdown is the users-by-grouping widget payload.
type UserBreakdown struct {
	Group      string             `json:"group"`
	Rows       []UserBreakdownRow `json:"rows"`
	TotalUsers int64              `json:"total_users"`
}

// TopPolicy names a top consumer for the usage-target widget.
type TopPolicy struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

// UsageTarget is the usage-vs-aggregate-quota summary payload.
type UsageTarget struct {
	UsageTotal  int64       `json:"usage_total"`
	Limit       int64       `json:"limit"`
	Percent     float64     `json:"percent"`
	TopPolicies []TopPolicy `json:"top_policies"`
	Period      string      `json:"period"`
	From        string      `json:"from"`
	To          string      `json:"to"`
}

// YearEntry is one selectable reporting year with its summed usage.
type YearEntry struct {
	Year  int   `json:"year"`
	Total int64 `json:"total"`
}

// AvailableYears lists the years present in the event store.
type AvailableYears struct {
	Years []YearEntry `json:"years"`
}

const topPolicyCount = 3

// resolveWindow applies the preset/bounds rules shared by the
// windowed reports.
func (s *Service) resolveWindow(preset string, from, to *time.Time) (timeutil.Interval, error) {
	if preset == "" {
		if from != nil || to != nil {
			preset = timeutil.PresetCustom
		} else {
			preset = timeutil.PresetLastMonth
		}
	}
	return timeutil.ResolveRange(preset, from, to, s.now(), s.location())
}

// MonthlySeries returns one summed point per calendar month of the
// window. With no explicit bounds it covers the current year, and a
// year with no events still yields twelve zero points.
func (s *Service) MonthlySeries(ctx context.Context, from, to *time.Time) (MonthlySeriesReport, error) {
	if s == nil || s.store == nil {
		return MonthlySeriesReport{}, errors.New("reporting service not initialized")
	}
	var (
		iv  timeutil.Interval
		err error
	)
	if from == nil && to == nil {
		iv, err = timeutil.ResolveRange(timeutil.PresetCurrentYear, nil, nil, s.now(), s.location())
	} else {
		iv, err = timeutil.ResolveRange(timeutil.PresetCustom, from, to, s.now(), s.location())
	}
	if err != nil {
		return MonthlySeriesReport{}, err
	}

	events, err := s.store.ListUsageEvents(ctx, iv)
	if err != nil {
		return MonthlySeriesReport{}, err
	}
	agg := Aggregate(events, iv, GranularityMonthly, false)
	s.recordSkipped(agg.Skipped)

	points := make([]MonthlyPoint, 0, len(agg.Buckets))
	for i, bucket := range agg.Buckets {
		points = append(points, MonthlyPoint{
			Month: int(agg.Plan[i].Start.Month()) - 1,
			Total: bucket.Total,
		})
	}
	return MonthlySeriesReport{
		From:   iv.FromString(),
		To:     iv.ToString(),
		Points: points,
	}, nil
}

// TokenUsage buckets a calendar year of usage at the requested
// granularity and pairs it with the flat aggregate quota.
func (s *Service) TokenUsage(ctx context.Context, mode string, year int) (TokenUsageReport, error) {
	if s == nil || s.store == nil {
		return TokenUsageReport{}, errors.New("reporting service not initialized")
	}
	granularity, err := ParseGranularity(mode)
	if err != nil {
		return TokenUsageReport{}, err
	}
	if year == 0 {
		year = s.now().In(s.location()).Year()
	}
	if year < 1970 || year > 9999 {
		return TokenUsageReport{}, ErrInvalidRange
	}
	iv := timeutil.YearInterval(year, s.location())

	events, err := s.store.ListUsageEvents(ctx, iv)
	if err != nil {
		return TokenUsageReport{}, err
	}
	policies, err := s.store.ListPolicies(ctx)
	if err != nil {
		return TokenUsageReport{}, err
	}

	agg := Aggregate(events, iv, granularity, true)
	s.recordSkipped(agg.Skipped)
	limitSum := SumLimits(policies)

	report := TokenUsageReport{
		Mode:   string(granularity),
		Year:   year,
		Labels: make([]string, 0, len(agg.Buckets)),
		Usage:  make([]int64, 0, len(agg.Buckets)),
		Limit:  make([]int64, 0, len(agg.Buckets)),
	}
	for _, bucket := range agg.Buckets {
		report.Labels = append(report.Labels, bucket.Label)
		report.Usage = append(report.Usage, bucket.Total)
		report.Limit = append(report.Limit, limitSum)
	}
	return report, nil
}

// PolicyUsage compares each policy's windowed usage to its own limit.
func (s *Service) PolicyUsage(ctx context.Context, preset string, from, to *time.Time) (PolicyUsageReport, error) {
	if s == nil || s.store == nil {
		return PolicyUsageReport{}, errors.New("reporting service not initialized")
	}
	iv, err := s.resolveWindow(preset, from, to)
	if err != nil {
		return PolicyUsageReport{}, err
	}

	events, err := s.store.ListUsageEvents(ctx, iv)
	if err != nil {
		return PolicyUsageReport{}, err
	}
	policies, err := s.store.ListPolicies(ctx)
	if err != nil {
		return PolicyUsageReport{}, err
	}

	totals, skipped := TotalsByPolicy(events, iv, true)
	s.recordSkipped(skipped)
	ranked := ComparePolicies(totals, policies)

	report := PolicyUsageReport{
		From:   iv.FromString(),
		To:     iv.ToString(),
		Period: periodLabel(preset, from, to),
		Rows:   make([]PolicyUsageRow, 0, len(ranked)),
	}
	for _, row := range ranked {
		report.Rows = append(report.Rows, PolicyUsageRow{
			ID:      row.ID.String(),
			Name:    row.Name,
			Total:   row.Total,
			Limit:   row.Limit,
			Percent: row.Percent,
		})
		report.Meta.UsageTotal += row.Total
	}
	report.Meta.PolicyCount = len(policies)
	report.Meta.LimitTotal = SumLimits(policies)
	return report, nil
}

// UsersBy breaks the user population down by the requested grouping.
// Only policy grouping is supported.
func (s *Service) UsersBy(ctx context.Context, group string) (UserBreakdown, error) {
	if s == nil || s.store == nil {
		return UserBreakdown{}, errors.New("reporting service not initialized")
	}
	if group == "" {
		group = "policy"
	}
	if group != "policy" {
		return UserBreakdown{}, ErrUnsupportedGrouping
	}

	counts, err := s.store.ListPolicyMemberCounts(ctx)
	if err != nil {
		return UserBreakdown{}, err
	}
	totalUsers, err := s.store.CountPolicyMembers(ctx)
	if err != nil {
		return UserBreakdown{}, err
	}

	breakdown := UserBreakdown{
		Group:      group,
		Rows:       make([]UserBreakdownRow, 0, len(counts)),
		TotalUsers: totalUsers,
	}
	for _, c := range counts {
		breakdown.Rows = append(breakdown.Rows, UserBreakdownRow{
			ID:        c.PolicyID.String(),
			Name:      c.Name,
			UserCount: c.UserCount,
			Percent:   UsagePercent(c.UserCount, totalUsers),
		})
	}
	return breakdown, nil
}

// UsageTarget summarizes total usage against the aggregate quota with
// the top consuming policies attached.
func (s *Service) UsageTarget(ctx context.Context, preset string, from, to *time.Time) (UsageTarget, error) {
	if s == nil || s.store == nil {
		return UsageTarget{}, errors.New("reporting service not initialized")
	}
	iv, err := s.resolveWindow(preset, from, to)
	if err != nil {
		return UsageTarget{}, err
	}

	events, err := s.store.ListUsageEvents(ctx, iv)
	if err != nil {
		return UsageTarget{}, err
	}
	policies, err := s.store.ListPolicies(ctx)
	if err != nil {
		return UsageTarget{}, err
	}

	totals, skipped := TotalsByPolicy(events, iv, true)
	s.recordSkipped(skipped)
	var usageTotal int64
	for _, total := range totals {
		usageTotal += total
	}
	limitSum := SumLimits(policies)

	top := TopN(ComparePolicies(totals, policies), topPolicyCount)
	topPolicies := make([]TopPolicy, 0, len(top))
	for _, row := range top {
		topPolicies = append(topPolicies, TopPolicy{Name: row.Name, Total: row.Total})
	}

	return UsageTarget{
		UsageTotal:  usageTotal,
		Limit:       limitSum,
		Percent:     UsagePercent(usageTotal, limitSum),
		TopPolicies: topPolicies,
		Period:      periodLabel(preset, from, to),
		From:        iv.FromString(),
		To:          iv.ToString(),
	}, nil
}

// AvailableYears lists the reporting years present in the store,
// newest first. An empty store falls back to the current year so the
// dashboard always has a selectable period.
func (s *Service) AvailableYears(ctx context.Context) (AvailableYears, error) {
	if s == nil || s.store == nil {
		return AvailableYears{}, errors.New("reporting service not initialized")
	}
	years, err := s.store.ListEventYearTotals(ctx, s.location().String())
	if err != nil {
		return AvailableYears{}, err
	}
	if len(years) == 0 {
		return AvailableYears{
			Years: []YearEntry{{Year: s.now().In(s.location()).Year(), Total: 0}},
		}, nil
	}
	entries := make([]YearEntry, 0, len(years))
	for _, yt := range years {
		entries = append(entries, YearEntry{Year: yt.Year, Total: yt.Total})
	}
	return AvailableYears{Years: entries}, nil
}

func periodLabel(preset string, from, to *time.Time) string {
	if preset != "" {
		return preset
	}
	if from != nil || to != nil {
		return timeutil.PresetCustom
	}
	return timeutil.PresetLastMonth
}
