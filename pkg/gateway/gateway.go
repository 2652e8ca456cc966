// Package gateway is the stateless HTTP front: it parses and validates
// JSON-RPC calls, submits render jobs to the broker and blocks for the
// single in-band result delivery.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shotbox/shotbox/pkg/broker"
	"github.com/shotbox/shotbox/pkg/errors"
	"github.com/shotbox/shotbox/pkg/job"
	"github.com/shotbox/shotbox/pkg/jsonrpc"
)

// Extra slack on top of the render timeout before the gateway gives up
// waiting on the mailbox.
const resultWaitSlack = 5 * time.Second

type Gateway struct {
	rpc      *jsonrpc.Server
	broker   broker.Broker
	defaults job.Defaults
}

func New(b broker.Broker, defaults job.Defaults) *Gateway {
	g := &Gateway{
		rpc:      jsonrpc.NewServer(),
		broker:   b,
		defaults: defaults,
	}

	g.rpc.Register("ping", g.handlePing)
	g.rpc.Register("get_methods", g.handleGetMethods)
	g.rpc.Register("screenshot", g.handleScreenshot)
	g.rpc.Register("get_job_status", g.handleGetJobStatus)

	return g
}

// Handler mounts the two endpoints: POST/OPTIONS /rpc and GET / (health).
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/rpc", g.rpc)
	mux.HandleFunc("/", g.handleHealth)
	return mux
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (g *Gateway) handlePing(ctx context.Context, _ json.RawMessage) (any, *errors.RpcError) {
	return map[string]any{"pong": true, "status": "online"}, nil
}

func (g *Gateway) handleGetMethods(ctx context.Context, _ json.RawMessage) (any, *errors.RpcError) {
	return map[string]any{"methods": g.rpc.Methods()}, nil
}

func (g *Gateway) handleScreenshot(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params job.ScreenshotParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errors.ErrInvalidParams
		}
	}

	params.ApplyDefaults(g.defaults)

	if details := params.Validate(); len(details) > 0 {
		return nil, errors.ErrInvalidParams.
			WithMessagef("screenshot params validation failed").
			WithData(map[string]any{"details": details})
	}

	jobID, err := g.broker.SubmitTask(ctx, params)
	if err != nil {
		log.Error("submit task failed", "err", err)
		return nil, errors.ErrInternal
	}

	waitTimeout := time.Duration(*params.TimeoutMs)*time.Millisecond + resultWaitSlack

	record, err := g.broker.WaitForResult(ctx, jobID, waitTimeout)
	if err != nil {
		log.Error("wait for result failed", "job_id", jobID, "err", err)
		return nil, errors.ErrInternal
	}

	if record == nil {
		return nil, errors.ErrTimeout.
			WithMessagef("job did not complete within %s", waitTimeout).
			WithData(map[string]any{"job_id": jobID})
	}

	if record.Status == job.StatusFailed {
		return nil, failedJobError(jobID, record.Result)
	}

	if record.Result == nil {
		log.Error("terminal job carries no result", "job_id", jobID)
		return nil, errors.ErrInternal
	}

	// The caller sees the result sub-object directly, not the job wrapper.
	return record.Result, nil
}

func (g *Gateway) handleGetJobStatus(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params struct {
		JobID string `json:"job_id"`
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errors.ErrInvalidParams
		}
	}

	if params.JobID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("missing required parameter: job_id")
	}

	record, err := g.broker.GetJob(ctx, params.JobID)
	if err != nil {
		log.Error("get job failed", "job_id", params.JobID, "err", err)
		return nil, errors.ErrInternal
	}

	if record == nil {
		return nil, errors.ErrJobNotFound.WithMessagef("job not found: %s", params.JobID)
	}

	// The image is already nulled on this path; only the mailbox copy ever
	// carries the payload.
	return record, nil
}

// failedJobError re-packages the worker-reported failure, preserving the
// domain code it carried through the mailbox.
func failedJobError(jobID string, result *job.ScreenshotResult) *errors.RpcError {
	code := errors.CodeScreenshotFailed
	message := "screenshot failed"

	if result != nil {
		if result.ErrorCode != 0 {
			code = result.ErrorCode
		}
		if result.Error != "" {
			message = result.Error
		}
	}

	return &errors.RpcError{
		Code:    code,
		Message: message,
		Data:    map[string]any{"job_id": jobID},
	}
}
