// Package worker consumes the broker task queue and drives the render
// engine. Workers are stateless across tasks; any number may run against
// one broker.
package worker

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shotbox/shotbox/pkg/broker"
	"github.com/shotbox/shotbox/pkg/errors"
	"github.com/shotbox/shotbox/pkg/job"
)

const (
	popTimeout   = 5 * time.Second
	errorBackoff = time.Second
)

// Renderer is the render engine surface the worker depends on.
type Renderer interface {
	Screenshot(ctx context.Context, params job.ScreenshotParams) (*job.ScreenshotResult, error)
}

type Worker struct {
	broker   broker.Broker
	renderer Renderer
	defaults job.Defaults
}

func New(b broker.Broker, r Renderer, defaults job.Defaults) *Worker {
	return &Worker{
		broker:   b,
		renderer: r,
		defaults: defaults,
	}
}

// Run loops until ctx is cancelled. A task already claimed when the signal
// arrives runs to completion before the loop exits.
func (w *Worker) Run(ctx context.Context) error {
	log.Info("worker started, waiting for tasks")

	for {
		if ctx.Err() != nil {
			log.Info("worker stopping")
			return nil
		}

		task, err := w.broker.PopTask(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return nil
			}
			log.Error("pop task failed", "err", err)
			time.Sleep(errorBackoff)
			continue
		}

		if task == nil {
			continue
		}

		// The claimed task must finish even if shutdown starts meanwhile.
		w.process(context.WithoutCancel(ctx), task)
	}
}

func (w *Worker) process(ctx context.Context, task *job.TaskPayload) {
	log.Info("processing task", "job_id", task.JobID)

	if err := w.broker.UpdateJobStatus(ctx, task.JobID, job.StatusProcessing, nil); err != nil {
		log.Error("status update failed", "job_id", task.JobID, "err", err)
	}

	params := task.Params
	params.ApplyDefaults(w.defaults)

	// Queue entries are validated again on this side of the broker.
	if details := params.Validate(); len(details) > 0 {
		w.fail(ctx, task.JobID, &errors.ServiceError{
			Code:    errors.CodeScreenshotFailed,
			Message: "invalid params: " + strings.Join(details, "; "),
		})
		return
	}

	result, err := w.renderer.Screenshot(ctx, params)

	switch {
	case err == nil:
		if uerr := w.broker.UpdateJobStatus(ctx, task.JobID, job.StatusSuccess, result); uerr != nil {
			log.Error("status update failed", "job_id", task.JobID, "err", uerr)
			return
		}
		log.Info("task completed", "job_id", task.JobID)

	default:
		var se *errors.ServiceError
		if goerrors.As(err, &se) {
			log.Warn("task failed", "job_id", task.JobID, "code", se.Code, "err", se.Message)
			w.fail(ctx, task.JobID, se)
			return
		}

		log.Error("unexpected error processing task", "job_id", task.JobID, "err", err)
		w.fail(ctx, task.JobID, &errors.ServiceError{
			Code:    errors.CodeScreenshotFailed,
			Message: fmt.Sprintf("internal error: %T", err),
		})
	}
}

func (w *Worker) fail(ctx context.Context, jobID string, se *errors.ServiceError) {
	result := &job.ScreenshotResult{
		Error:     se.Message,
		ErrorCode: se.Code,
	}

	if err := w.broker.UpdateJobStatus(ctx, jobID, job.StatusFailed, result); err != nil {
		log.Error("status update failed", "job_id", jobID, "err", err)
	}
}
