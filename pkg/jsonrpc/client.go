package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/shotbox/shotbox/pkg/errors"
)

// Client is a minimal wrapper around http.Client to perform JSON-RPC calls.
type Client struct {
	Endpoint string
	HTTP     *http.Client

	nextID int
}

// Call performs a single JSON-RPC request and unmarshals the result field
// into result (when non-nil). A JSON-RPC level failure is returned as the
// *errors.RpcError carried by the response.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}

	c.nextID++

	payload := RPCRequest{
		JSONRPC: Version,
		ID:      mustMarshalID(c.nextID),
		Method:  method,
	}

	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		payload.Params = b
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		JSONRPC string           `json:"jsonrpc"`
		ID      json.RawMessage  `json:"id"`
		Result  json.RawMessage  `json:"result"`
		Error   *errors.RpcError `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && len(rpcResp.Result) > 0 {
		return json.Unmarshal(rpcResp.Result, result)
	}

	return nil
}

func mustMarshalID(v int) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
