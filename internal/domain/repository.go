package domain

import (
	"context"
	"time"
)

// JobRepository persists the transform history kept by the service.
type JobRepository interface {
	Create(ctx context.Context, job JobRecord) error
	Finish(ctx context.Context, job JobRecord) error
	GetByID(ctx context.Context, jobID string) (JobRecord, error)
	ListRecent(ctx context.Context, limit int) ([]JobRecord, error)
}

// StatsRepository aggregates the transform history.
type StatsRepository interface {
	ToolStats(ctx context.Context, since time.Time) ([]ToolStats, error)
}
