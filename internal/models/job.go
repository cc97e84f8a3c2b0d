package models

import "time"

// Job is a request to authenticate one account. Jobs live in memory only;
// the durable record of an attempt is the RunLog written at completion.
type Job struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	BatchID   string    `json:"batch_id,omitempty"`
	Headful   bool      `json:"headful,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchOutcome is one account's result inside a batch aggregate.
type BatchOutcome struct {
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Status      RunStatus `json:"status"`
	Message     string    `json:"message,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
}

// BatchSummary is emitted exactly once when a batch finalizes.
type BatchSummary struct {
	BatchID         string         `json:"batch_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	SkippedInactive []string       `json:"skipped_inactive,omitempty"`
	Outcomes        []BatchOutcome `json:"outcomes"`
}

// BatchProgress is the pollable view of an active batch.
type BatchProgress struct {
	BatchID   string  `json:"batch_id"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// QueueStats is the observable state of the job queue.
type QueueStats struct {
	Pending     int             `json:"pending"`
	Running     int             `json:"running"`
	Concurrency int             `json:"concurrency"`
	Batches     []BatchProgress `json:"batches,omitempty"`
}
