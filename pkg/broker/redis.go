package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shotbox/shotbox/pkg/job"
)

// Options configures the Redis connection and key layout.
type Options struct {
	Addr     string
	DB       int
	Password string

	TaskQueue    string
	ResultPrefix string
	ResultTTL    time.Duration
}

// RedisBroker implements Broker on a single go-redis client. The client is
// safe for concurrent use; pipeline execution is serialized internally.
type RedisBroker struct {
	client *redis.Client
	opts   Options
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, opts Options) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("broker: connect to redis %s: %w", opts.Addr, err)
	}

	return &RedisBroker{client: client, opts: opts}, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func (b *RedisBroker) statusKey(jobID string) string {
	return b.opts.ResultPrefix + jobID
}

func (b *RedisBroker) mailboxKey(jobID string) string {
	return ResultQueuePrefix + jobID
}

func (b *RedisBroker) SubmitTask(ctx context.Context, params job.ScreenshotParams) (string, error) {
	jobID := uuid.NewString()

	record := job.NewPending(jobID)

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(job.TaskPayload{JobID: jobID, Params: params})
	if err != nil {
		return "", err
	}

	// MULTI/EXEC keeps the status SET and the queue RPUSH atomic: a worker
	// can never dequeue a job whose status key is absent.
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.statusKey(jobID), recordJSON, b.opts.ResultTTL)
		pipe.RPush(ctx, b.opts.TaskQueue, payloadJSON)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("broker: submit task: %w", err)
	}

	return jobID, nil
}

func (b *RedisBroker) PopTask(ctx context.Context, timeout time.Duration) (*job.TaskPayload, error) {
	res, err := b.client.BLPop(ctx, timeout, b.opts.TaskQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// BLPOP returns [key, value].
	var payload job.TaskPayload
	if err := json.Unmarshal([]byte(res[1]), &payload); err != nil {
		return nil, fmt.Errorf("broker: decode task payload: %w", err)
	}

	return &payload, nil
}

func (b *RedisBroker) GetJob(ctx context.Context, jobID string) (*job.JobResult, error) {
	data, err := b.client.Get(ctx, b.statusKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record job.JobResult
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("broker: decode job record: %w", err)
	}

	return &record, nil
}

func (b *RedisBroker) UpdateJobStatus(ctx context.Context, jobID string, status job.Status, result *job.ScreenshotResult) error {
	record, err := b.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil {
		// Status key TTL lapsed; nobody is interested anymore.
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

		mailbox := b.mailboxKey(jobID)
		if err := b.client.RPush(ctx, mailbox, full).Err(); err != nil {
			return err
		}
		if err := b.client.Expire(ctx, mailbox, MailboxTTL).Err(); err != nil {
			return err
		}
	}

	// Use once, then forget: the long-lived status key never stores the
	// large base64 payload. The image is nulled on a copy, never on the
	// caller's result.
	if record.Result != nil {
		slim := *record.Result
		slim.Image = nil
		record.Result = &slim
	}

	slim, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return b.client.Set(ctx, b.statusKey(jobID), slim, b.opts.ResultTTL).Err()
}

func (b *RedisBroker) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*job.JobResult, error) {
	res, err := b.client.BLPop(ctx, timeout, b.mailboxKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record job.JobResult
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("broker: decode mailbox record: %w", err)
	}

	return &record, nil
}
