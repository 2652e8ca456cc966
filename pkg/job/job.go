package job

// Core records for one screenshot job as they travel between the gateway,
// the broker and the workers. The JSON field names are part of the wire
// contract: status keys and mailbox entries store these records verbatim.

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status allows no further transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ScreenshotResult is the payload attached to a terminal job. Either the
// image fields or the error fields are meaningful, never both.
type ScreenshotResult struct {
	// Image holds the base64 encoded bytes. It is nulled out before the
	// record is persisted to the status key; only the mailbox copy carries
	// the full payload.
	Image     *string `json:"image"`
	ImageType string  `json:"image_type"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	SizeBytes int     `json:"size_bytes"`

	Error string `json:"error,omitempty"`
	// ErrorCode is the screenshot service code (-32001 .. -32004) the
	// gateway re-packages as the JSON-RPC error.
	ErrorCode int `json:"error_code,omitempty"`
}

// JobResult is the full job record: status key value and mailbox entry.
type JobResult struct {
	JobID     string            `json:"job_id"`
	Status    Status            `json:"status"`
	Result    *ScreenshotResult `json:"result"`
	CreatedAt float64           `json:"created_at"`
	UpdatedAt float64           `json:"updated_at"`
}

// TaskPayload is one entry on the broker task queue.
type TaskPayload struct {
	JobID  string           `json:"job_id"`
	Params ScreenshotParams `json:"params"`
}

// NewPending builds the initial record written to the status key at submit
// time.
func NewPending(jobID string) JobResult {
	now := EpochNow()
	return JobResult{
		JobID:     jobID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EpochNow returns the current time as float seconds since the epoch, the
// timestamp format stored in job records.
func EpochNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
