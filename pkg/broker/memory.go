package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shotbox/shotbox/pkg/job"
)

// MemoryBroker is an in-process Broker with the same atomicity and
// single-consumer semantics as the Redis implementation. It exists for unit
// tests and local development without a Redis instance. Records cross the
// facade as JSON, like they would over the wire.
type MemoryBroker struct {
	mu        sync.Mutex
	queue     chan []byte
	statuses  map[string]*memoryEntry
	mailboxes map[string]chan []byte

	resultTTL  time.Duration
	mailboxTTL time.Duration
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryOption tweaks a MemoryBroker, mainly to shrink TTLs in tests.
type MemoryOption func(*MemoryBroker)

func WithResultTTL(ttl time.Duration) MemoryOption {
	return func(b *MemoryBroker) { b.resultTTL = ttl }
}

func WithMailboxTTL(ttl time.Duration) MemoryOption {
	return func(b *MemoryBroker) { b.mailboxTTL = ttl }
}

func NewMemoryBroker(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		queue:      make(chan []byte, 1024),
		statuses:   make(map[string]*memoryEntry),
		mailboxes:  make(map[string]chan []byte),
		resultTTL:  time.Hour,
		mailboxTTL: MailboxTTL,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *MemoryBroker) Close() error {
	return nil
}

func (b *MemoryBroker) SubmitTask(ctx context.Context, params job.ScreenshotParams) (string, error) {
	jobID := uuid.NewString()

	recordJSON, err := json.Marshal(job.NewPending(jobID))
	if err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(job.TaskPayload{JobID: jobID, Params: params})
	if err != nil {
		return "", err
	}

	// Both writes happen under one lock, mirroring the Redis transaction.
	b.mu.Lock()
	b.statuses[jobID] = &memoryEntry{data: recordJSON, expiresAt: time.Now().Add(b.resultTTL)}
	b.queue <- payloadJSON
	b.mu.Unlock()

	return jobID, nil
}

func (b *MemoryBroker) PopTask(ctx context.Context, timeout time.Duration) (*job.TaskPayload, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-b.queue:
		var payload job.TaskPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBroker) GetJob(ctx context.Context, jobID string) (*job.JobResult, error) {
	b.mu.Lock()
	entry, ok := b.statuses[jobID]
	if ok && time.Now().After(entry.expiresAt) {
		delete(b.statuses, jobID)
		ok = false
	}
	b.mu.Unlock()

	if !ok {
		return nil, nil
	}

	var record job.JobResult
	if err := json.Unmarshal(entry.data, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (b *MemoryBroker) UpdateJobStatus(ctx context.Context, jobID string, status job.Status, result *job.ScreenshotResult) error {
	record, err := b.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	record.Status = status
	record.UpdatedAt = job.EpochNow()
	record.Result = result

	if status.Terminal() {
		full, err := json.Marshal(record)
		if err != nil {
			return err
		}

		mailbox := b.mailbox(jobID)
		mailbox <- full

		time.AfterFunc(b.mailboxTTL, func() {
			// Self-evict when the waiter already timed out.
			select {
			case <-mailbox:
			default:
			}
		})
	}

	if record.Result != nil {
		slim := *record.Result
		slim.Image = nil
		record.Result = &slim
	}

	slim, err := json.Marshal(record)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.statuses[jobID] = &memoryEntry{data: slim, expiresAt: time.Now().Add(b.resultTTL)}
	b.mu.Unlock()

	return nil
}

func (b *MemoryBroker) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*job.JobResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-b.mailbox(jobID):
		var record job.JobResult
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		return &record, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBroker) mailbox(jobID string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	mbox, ok := b.mailboxes[jobID]
	if !ok {
		mbox = make(chan []byte, 1)
		b.mailboxes[jobID] = mbox
	}

	return mbox
}

var _ Broker = (*MemoryBroker)(nil)
var _ Broker = (*RedisBroker)(nil)
