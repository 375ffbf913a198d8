package domain

import "time"

// ToolStats aggregates the history of one tool over a window.
type ToolStats struct {
	ToolID          string  `json:"toolId"`
	Total           int64   `json:"total"`
	Succeeded       int64   `json:"succeeded"`
	Failed          int64   `json:"failed"`
	Cancelled       int64   `json:"cancelled"`
	AvgProcessingMs float64 `json:"avgProcessingMs"`
}

// StatsSummary is the usage report served by the stats endpoint.
type StatsSummary struct {
	Since time.Time   `json:"since"`
	Total int64       `json:"total"`
	Tools []ToolStats `json:"tools"`
}
