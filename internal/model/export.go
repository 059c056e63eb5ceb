package model

import "time"

// SessionsExport is the top-level JSON structure for result export.
type SessionsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Variant    string          `json:"prompt_variant"`
	Sessions   []SessionExport `json:"sessions"`
}

// SessionExport holds one session's completed cases for export.
type SessionExport struct {
	SessionID     string         `json:"session_id"`
	ResidencyYear ResidencyYear  `json:"residency_year"`
	Difficulty    Difficulty     `json:"difficulty"`
	Topic         string         `json:"topic"`
	CreatedAt     time.Time      `json:"created_at"`
	Cases         []CaseLogEntry `json:"cases"`
	MeanScore     float64        `json:"mean_score"`
}
