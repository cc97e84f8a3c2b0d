package models

import "time"

// RunStatus is the recorded outcome of one authentication attempt.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFail    RunStatus = "fail"
)

// RunLog is the immutable persisted record of one authentication attempt.
// Created exactly once per job at completion.
type RunLog struct {
	ID          string    `json:"id" badgerhold:"key"`
	AccountID   string    `json:"account_id" badgerhold:"index"`
	AccountName string    `json:"account_name"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	Status      RunStatus `json:"status"`
	Message     string    `json:"message"`

	// TokenIssued is true only when the post-submit heuristics confirmed the
	// broker actually issued a session, as opposed to the form flow merely
	// completing without error.
	TokenIssued bool   `json:"token_issued"`
	FinalURL    string `json:"final_url,omitempty"`
	ArtifactDir string `json:"artifact_dir,omitempty"`
}

// AuthResult is the contract returned by the authentication session.
type AuthResult struct {
	Status      RunStatus `json:"status"`
	Message     string    `json:"message"`
	TokenIssued bool      `json:"token_issued"`
	FinalURL    string    `json:"final_url,omitempty"`
	ArtifactDir string    `json:"artifact_dir,omitempty"`
}
