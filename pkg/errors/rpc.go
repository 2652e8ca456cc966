package errors

import (
	"fmt"
)

/*
RpcError represents a JSON-RPC error response.
*/
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

/*
Error implements the error interface for RpcError.
*/
func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Error codes, carried end to end from the worker through the result mailbox
// to the JSON-RPC response.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeScreenshotFailed = -32001
	CodeBrowserError     = -32002
	CodeSelectorNotFound = -32003
	CodeTimeout          = -32004
	CodeJobNotFound      = -32005
)

// Convenience errors (JSON-RPC reserved codes -32700 .. -32603, plus the
// screenshot service range -32001 .. -32005).
var (
	ErrParseError     = &RpcError{Code: CodeParseError, Message: "parse error"}
	ErrInvalidRequest = &RpcError{Code: CodeInvalidRequest, Message: "invalid request"}
	ErrMethodNotFound = &RpcError{Code: CodeMethodNotFound, Message: "method not found"}
	ErrInvalidParams  = &RpcError{Code: CodeInvalidParams, Message: "invalid params"}
	ErrInternal       = &RpcError{Code: CodeInternalError, Message: "internal server error"}

	ErrScreenshotFailed = &RpcError{Code: CodeScreenshotFailed, Message: "screenshot failed"}
	ErrBrowserError     = &RpcError{Code: CodeBrowserError, Message: "browser error"}
	ErrSelectorNotFound = &RpcError{Code: CodeSelectorNotFound, Message: "selector not found"}
	ErrTimeout          = &RpcError{Code: CodeTimeout, Message: "timeout"}
	ErrJobNotFound      = &RpcError{Code: CodeJobNotFound, Message: "job not found"}
)

// WithMessagef creates a *copy* of an RpcError with a formatted message.
// It does not modify the original error variable.
func (e *RpcError) WithMessagef(format string, args ...any) *RpcError {
	newErr := *e // Create a shallow copy
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// WithData creates a *copy* of an RpcError carrying the supplied data
// payload. Like WithMessagef it never mutates the sentinel values.
func (e *RpcError) WithData(data any) *RpcError {
	newErr := *e
	newErr.Data = data
	return &newErr
}
