package reporting

import (
	"testing"

	"github.com/google/uuid"

	"github.com/opsboard/usage_insights/backend/internal/store"
)

func TestUsagePercentClamped(t *testing.T) {
	tests := []struct {
		total, limit int64
		want         float64
	}{
		{50, 100, 50},
		{100, 100, 100},
		{250, 100, 100},
		{30, 0, 0},
		{0, 100, 0},
	}
	for _, tt := range tests {
		got := UsagePercent(tt.total, tt.limit)
		if got != tt.want {
			t.Errorf("UsagePercent(%d, %d): want %v, got %v", tt.total, tt.limit, tt.want, got)
		}
		if got < 0 || got > 100 {
			t.Errorf("UsagePercent(%d, %d) = %v out of [0,100]", tt.total, tt.limit, got)
		}
	}
}

func TestComparePoliciesZeroLimitAndZeroUsage(t *testing.T) {
	p1 := store.Policy{ID: uuid.New(), Name: "engineering", TokenLimit: 100}
	p2 := store.Policy{ID: uuid.New(), Name: "support", TokenLimit: 0}
	p3 := store.Policy{ID: uuid.New(), Name: "sales", TokenLimit: 500}
	totals := map[uuid.UUID]int64{p1.ID: 50, p2.ID: 30}

	ranked := ComparePolicies(totals, []store.Policy{p1, p2, p3})
	if len(ranked) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(ranked))
	}
	byName := make(map[string]RankedPolicy, len(ranked))
	for _, row := range ranked {
		byName[row.Name] = row
	}
	if byName["engineering"].Percent != 50 {
		t.Errorf("engineering: want 50%%, got %v", byName["engineering"].Percent)
	}
	if byName["support"].Percent != 0 {
		t.Errorf("support: zero limit must report 0%%, got %v", byName["support"].Percent)
	}
	if byName["sales"].Total != 0 || byName["sales"].Percent != 0 {
		t.Errorf("sales: unused policy must appear with zero total, got %+v", byName["sales"])
	}
}

func TestComparePoliciesOrderingAndTies(t *testing.T) {
	pa := store.Policy{ID: uuid.New(), Name: "beta", TokenLimit: 10}
	pb := store.Policy{ID: uuid.New(), Name: "alpha", TokenLimit: 10}
	pc := store.Policy{ID: uuid.New(), Name: "gamma", TokenLimit: 10}
	totals := map[uuid.UUID]int64{pa.ID: 5, pb.ID: 5, pc.ID: 9}

	ranked := ComparePolicies(totals, []store.Policy{pa, pb, pc})
	wantOrder := []string{"gamma", "alpha", "beta"}
	for i, name := range wantOrder {
		if ranked[i].Name != name {
			t.Fatalf("position %d: want %s, got %s", i, name, ranked[i].Name)
		}
	}

	top := TopN(ranked, 2)
	if len(top) != 2 || top[0].Name != "gamma" || top[1].Name != "alpha" {
		t.Fatalf("unexpected top-2 %+v", top)
	}
	if got := TopN(ranked, 10); len(got) != 3 {
		t.Fatalf("oversized n must return everything, got %d rows", len(got))
	}
}

func TestSumLimits(t *testing.T) {
	policies := []store.Policy{
		{ID: uuid.New(), Name: "a", TokenLimit: 100},
		{ID: uuid.New(), Name: "b", TokenLimit: 0},
		{ID: uuid.New(), Name: "c", TokenLimit: 400},
	}
	if got := SumLimits(policies); got != 500 {
		t.Fatalf("want 500, got %d", got)
	}
}
