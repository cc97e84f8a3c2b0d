package common

import (
	"github.com/google/uuid"
)

// NewAccountID generates a unique account ID with the "acct_" prefix
func NewAccountID() string {
	return "acct_" + uuid.New().String()
}

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewBatchID generates a unique batch ID with the "batch_" prefix
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}

// NewRunID generates a unique run log ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}
