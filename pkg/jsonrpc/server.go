package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shotbox/shotbox/pkg/errors"
)

// HandlerFunc processes the raw params field and returns a result or a
// *RpcError. Returning (nil, nil) is treated as null-result.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError)

// Server multiplexes JSON-RPC method names to handler functions. It serves a
// single endpoint: POST carries requests, OPTIONS answers CORS preflights,
// everything else is rejected with -32600.
type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewServer() *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
	}
}

func (s *Server) Register(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Methods returns the sorted list of registered method names.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		respondError(w, nil, errors.ErrInvalidRequest.WithMessagef("only POST is supported on this endpoint"))
		return
	}

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, nil, errors.ErrParseError)
		return
	}

	body = bytes.TrimSpace(body)

	if len(body) == 0 {
		respondError(w, nil, errors.ErrInvalidRequest)
		return
	}

	// Batch requests are out of scope for this service.
	if body[0] == '[' {
		respondError(w, nil, errors.ErrInvalidRequest.WithMessagef("batch requests are not supported"))
		return
	}

	var req RPCRequest

	if err = json.Unmarshal(body, &req); err != nil {
		// Well-formed JSON of the wrong shape (a bare number, string or
		// bool, or a mistyped field) is an invalid request, not a parse
		// error.
		var typeErr *json.UnmarshalTypeError
		if goerrors.As(err, &typeErr) {
			respondError(w, nil, errors.ErrInvalidRequest.WithMessagef("request must be an object"))
			return
		}
		respondError(w, nil, errors.ErrParseError)
		return
	}

	resp := s.handle(r.Context(), &req)

	// Notifications get no response body.
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err = json.NewEncoder(w).Encode(resp); err != nil {
		respondError(w, req.ID, errors.ErrInternal)
	}
}

func (s *Server) handle(ctx context.Context, req *RPCRequest) (resp RPCResponse) {
	// Handler failures never leak to the client as anything but a sanitized
	// internal error.
	defer func() {
		if r := recover(); r != nil {
			log.Error("rpc handler panicked", "method", req.Method, "panic", r)
			resp = newErrorResponse(req.ID, errors.ErrInternal)
		}
	}()

	if req.JSONRPC != Version || req.Method == "" {
		return newErrorResponse(req.ID, errors.ErrInvalidRequest)
	}

	s.mu.RLock()
	h, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		return newErrorResponse(req.ID, errors.ErrMethodNotFound)
	}

	result, rpcErr := h(ctx, req.Params)

	if rpcErr != nil {
		return newErrorResponse(req.ID, rpcErr)
	}

	return newResultResponse(req.ID, result)
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func respondError(w http.ResponseWriter, id json.RawMessage, e *errors.RpcError) {
	if err := json.NewEncoder(w).Encode(newErrorResponse(id, e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
