package model

import "time"

// Job is the persisted record of one conversion request. It is written
// best-effort after the operation finishes and never influences the
// response sent to the caller.
type Job struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	ArchiveKey string    `json:"archive_key,omitempty"`
	ArchiveURL string    `json:"archive_url,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Job statuses.
const (
	JobStatusOK     = "ok"
	JobStatusFailed = "failed"
)
