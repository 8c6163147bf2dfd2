package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the JSON-RPC protocol version sent with every request.
const Version = "2.0"

// Request is an outgoing JSON-RPC call.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds a request. Params are never encoded as null.
func NewRequest(id uint64, method string, params ...any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SubscriptionID identifies a subscription on the node. Nodes answer with
// either a JSON string or a number; both are kept in their string form.
type SubscriptionID string

func (s *SubscriptionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SubscriptionID(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSubscriptionID, data)
	}
	*s = SubscriptionID(n.String())
	return nil
}

type frameKind int

const (
	frameMalformed frameKind = iota
	frameResponse
	frameNotification
)

// frame is any incoming message: a response carries an id, a notification
// carries a method and subscription params.
type frame struct {
	ID     json.RawMessage     `json:"id"`
	Method string              `json:"method"`
	Result json.RawMessage     `json:"result"`
	Error  *RPCError           `json:"error"`
	Params *notificationParams `json:"params"`

	requestID uint64
}

type notificationParams struct {
	Subscription SubscriptionID  `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

func parseFrame(data []byte) (*frame, frameKind, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, frameMalformed, err
	}

	if len(f.ID) > 0 && !bytes.Equal(f.ID, []byte("null")) {
		id, err := strconv.ParseUint(string(bytes.Trim(f.ID, `"`)), 10, 64)
		if err != nil {
			return nil, frameMalformed, fmt.Errorf("response id %s: %w", f.ID, err)
		}
		f.requestID = id
		return &f, frameResponse, nil
	}

	if f.Method != "" && f.Params != nil && f.Params.Subscription != "" {
		return &f, frameNotification, nil
	}
	return nil, frameMalformed, fmt.Errorf("frame is neither a response nor a notification")
}
