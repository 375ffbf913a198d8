package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/sqlinline"
)

// ToolStats returns per-tool counters for jobs created at or after since,
// busiest tool first.
func (r *JobRepositoryPG) ToolStats(ctx context.Context, since time.Time) ([]domain.ToolStats, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QToolStats, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("repo: tool stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.ToolStats
	for rows.Next() {
		var s domain.ToolStats
		if err := rows.Scan(
			&s.ToolID,
			&s.Total,
			&s.Succeeded,
			&s.Failed,
			&s.Cancelled,
			&s.AvgProcessingMs,
		); err != nil {
			return nil, fmt.Errorf("repo: scan tool stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: tool stats: %w", err)
	}
	return stats, nil
}

var _ domain.StatsRepository = (*JobRepositoryPG)(nil)
