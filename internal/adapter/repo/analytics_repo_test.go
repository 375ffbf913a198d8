package repo

import (
	"context"
	"testing"
	"time"

	"github.com/Knouxai/Knoux-versa-sub002/internal/sqlinline"
)

func TestJobRepositoryToolStats(t *testing.T) {
	sql := &fakeSQL{rows: [][]any{
		{"enhance", int64(5), int64(3), int64(1), int64(1), 142.5},
		{"upscale", int64(2), int64(2), int64(0), int64(0), 80.0},
	}}
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("GST", 4*3600))

	stats, err := NewJobRepository(sql).ToolStats(context.Background(), since)
	if err != nil {
		t.Fatalf("ToolStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if got := stats[0]; got.ToolID != "enhance" || got.Total != 5 || got.Cancelled != 1 || got.AvgProcessingMs != 142.5 {
		t.Fatalf("unexpected first row %+v", got)
	}
	if len(sql.queries) != 1 || sql.queries[0].query != sqlinline.QToolStats {
		t.Fatalf("unexpected queries %+v", sql.queries)
	}
	arg, ok := sql.queries[0].args[0].(time.Time)
	if !ok || arg.Location() != time.UTC || !arg.Equal(since) {
		t.Fatalf("since arg = %v", sql.queries[0].args[0])
	}
}

func TestJobRepositoryToolStatsEmpty(t *testing.T) {
	stats, err := NewJobRepository(&fakeSQL{}).ToolStats(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ToolStats: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no rows, got %+v", stats)
	}
}
