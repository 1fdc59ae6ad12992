// Package rpc implements the NDJSON-framed JSON-RPC 2.0 wire format:
// request/response/notification envelopes, size-capped line framing,
// and the application error taxonomy (spec.md §4.D, §4.E).
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxLineBytes is the per-line size ceiling; lines longer than this are
// rejected with a parse error rather than decoded.
const MaxLineBytes = 1 << 20

const protocolVersion = "2.0"

// ID holds a JSON-RPC id, which may be a string, a number, or null.
// Keeping the raw encoding around lets it round-trip unchanged.
type ID struct {
	raw   json.RawMessage
	isSet bool
}

// NewStringID wraps a string id.
func NewStringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: b, isSet: true}
}

// NewIntID wraps an integer id.
func NewIntID(n int64) ID {
	b, _ := json.Marshal(n)
	return ID{raw: b, isSet: true}
}

// NullID is the JSON null id, used on responses to requests that could
// not be parsed well enough to recover the original id.
func NullID() ID {
	return ID{raw: json.RawMessage("null"), isSet: true}
}

// IsNull reports whether the id is JSON null.
func (i ID) IsNull() bool {
	return i.isSet && bytes.Equal(bytes.TrimSpace(i.raw), []byte("null"))
}

func (i ID) MarshalJSON() ([]byte, error) {
	if !i.isSet {
		return json.RawMessage("null"), nil
	}
	return i.raw, nil
}

func (i *ID) UnmarshalJSON(data []byte) error {
	i.raw = append(json.RawMessage(nil), data...)
	i.isSet = true
	return nil
}

// Request is a decoded incoming line that carries an id (a call expecting
// a response). A line with no "id" field decodes as a Notification instead.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// Notification is a decoded incoming or outgoing line with no id.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewNotification builds a Notification, marshaling params.
func NewNotification(method string, params any) (*Notification, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Notification{JSONRPC: protocolVersion, Method: method, Params: b}, nil
}

// Response is an outgoing success or error reply, always carrying the
// request's id unchanged.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResult builds a success Response.
func NewResult(id ID, result any) (*Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: protocolVersion, Result: b, ID: id}, nil
}

// NewErrorResponse builds an error Response.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{JSONRPC: protocolVersion, Error: err, ID: id}
}

// rawEnvelope is used to sniff whether a decoded line is a request
// (has an "id" key) or a notification (no "id" key at all) — the two
// input shapes spec.md §4.D distinguishes.
type rawEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *json.RawMessage `json:"id,omitempty"`
}

// DecodeLine parses one trimmed, size-checked line into either a Request
// or a Notification. isRequest is true iff the line carried an "id" key.
func DecodeLine(line []byte) (req *Request, notif *Notification, isRequest bool, err error) {
	var env rawEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, false, fmt.Errorf("decode: %w", err)
	}

	if env.ID != nil {
		var id ID
		if err := id.UnmarshalJSON(*env.ID); err != nil {
			return nil, nil, false, fmt.Errorf("decode id: %w", err)
		}
		return &Request{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params, ID: id}, nil, true, nil
	}

	return nil, &Notification{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params}, false, nil
}

// EncodeLine serializes v (a *Response or *Notification) as a single
// JSON value followed by a newline.
func EncodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
