package app

import (
	"context"
	"testing"
	"time"

	"github.com/opsboard/usage_insights/backend/internal/config"
)

func TestNewContainerRequiresPrimitives(t *testing.T) {
	ctx := context.Background()

	if _, err := NewContainer(ctx, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing config")
	}
	if _, err := NewContainer(ctx, &config.Config{}, nil, nil); err == nil {
		t.Fatal("expected error for missing db pool")
	}
}

func TestReportingLocFallsBackToUTC(t *testing.T) {
	var container *Container
	if loc := container.ReportingLoc(); loc != time.UTC {
		t.Fatalf("expected UTC for nil container, got %v", loc)
	}

	populated := &Container{ReportingLocation: time.FixedZone("EST", -5*3600)}
	if loc := populated.ReportingLoc(); loc.String() != "EST" {
		t.Fatalf("expected EST, got %v", loc)
	}
}
