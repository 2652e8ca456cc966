package jsonrpc

import (
	"encoding/json"

	"github.com/shotbox/shotbox/pkg/errors"
)

// RPCResponse keeps the request id as raw JSON so the caller's id type
// (string, integer) round-trips untouched. A nil ID marshals as null, which
// is what a parse error response must carry.
type RPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

func newResultResponse(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

func newErrorResponse(id json.RawMessage, e *errors.RpcError) RPCResponse {
	// Ensure mandatory Code/Message.
	if e == nil {
		e = errors.ErrInternal
	}

	return RPCResponse{
		JSONRPC: Version,
		ID:      id,
		Error:   e,
	}
}
