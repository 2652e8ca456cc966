package broker

// The broker is the only shared medium between gateways and workers. It
// models three logical resources on one Redis instance: the task queue (a
// list), per-job status keys (JSON values with a long TTL) and per-job
// result mailboxes (short-lived lists used for exactly one hand-off).

import (
	"context"
	"time"

	"github.com/shotbox/shotbox/pkg/job"
)

// mailbox entries evict themselves shortly after the waiter has gone away.
const (
	ResultQueuePrefix = "result_queue:"
	MailboxTTL        = 60 * time.Second
)

// Broker is the typed facade both the gateway and the worker are built
// against. RedisBroker is the production implementation; MemoryBroker is the
// in-process double used by tests.
type Broker interface {
	// SubmitTask writes the pending status key and enqueues the task in one
	// atomic step, so a dequeueable task always has a readable status key.
	// It returns the generated job id.
	SubmitTask(ctx context.Context, params job.ScreenshotParams) (string, error)

	// PopTask blocks up to timeout for the next queued task. A nil payload
	// with a nil error means the timeout elapsed.
	PopTask(ctx context.Context, timeout time.Duration) (*job.TaskPayload, error)

	// GetJob loads the status record, nil when the key is absent or expired.
	GetJob(ctx context.Context, jobID string) (*job.JobResult, error)

	// UpdateJobStatus advances the job and, on a terminal status, pushes the
	// full record (image included) to the result mailbox exactly once. The
	// persisted status record never keeps the image bytes.
	UpdateJobStatus(ctx context.Context, jobID string, status job.Status, result *job.ScreenshotResult) error

	// WaitForResult blocks up to timeout on the job's mailbox and returns the
	// full record, nil when nothing arrived in time. The mailbox is drained
	// by exactly one waiter.
	WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*job.JobResult, error)

	Close() error
}
