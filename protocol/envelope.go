// Package protocol provides the dispatch envelope codec and server error
// classification for the command-execution core. Wire-level binary encoding
// is outside this module; requests and responses travel as EOT-framed JSON
// envelopes produced and consumed by the transport peer.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// EOT is the End of Transmission byte used for envelope framing.
const EOT byte = 0x04

// Request operation verbs understood by the server peer.
const (
	OpQuery     = "query"      // execute raw command text
	OpPrepare   = "prepare"    // compile a statement server-side
	OpExecute   = "execute"    // run a previously prepared statement
	OpStmtClose = "stmt_close" // release a prepared statement handle
	OpKillQuery = "kill_query" // abort the in-flight query of a thread
)

// Request is one framed command sent down the dispatch channel.
type Request struct {
	Op          string `json:"op"`
	SQL         string `json:"sql,omitempty"`
	StatementID uint32 `json:"statementId,omitempty"`
	ThreadID    uint32 `json:"threadId,omitempty"`
	Params      []any  `json:"params,omitempty"`
}

// ResultSet is one forward-only block of rows within a response.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Response is the decoded reply to one Request.
type Response struct {
	OK           bool        `json:"ok"`
	AffectedRows int64       `json:"affectedRows,omitempty"`
	LastInsertID int64       `json:"lastInsertId,omitempty"`
	StatementID  uint32      `json:"statementId,omitempty"`
	ResultSets   []ResultSet `json:"resultSets,omitempty"`
	Warnings     int         `json:"warnings,omitempty"`

	// Error fields, populated when OK is false.
	ErrorCode uint16 `json:"errorCode,omitempty"`
	SQLState  string `json:"sqlState,omitempty"`
	Message   string `json:"message,omitempty"`
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// EncodeRequest frames a request as JSON terminated by EOT.
func EncodeRequest(req Request) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	if err := enc.Encode(&req); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	// json.Encoder appends a newline; replace it with the frame terminator.
	b := buf.Bytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	out := make([]byte, len(b)+1)
	copy(out, b)
	out[len(b)] = EOT
	return out, nil
}

// DecodeRequest parses a framed request. Used by test doubles to assert on
// what a connection actually dispatched.
func DecodeRequest(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty request data")
	}
	if data[len(data)-1] == EOT {
		data = data[:len(data)-1]
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse frames a response as JSON terminated by EOT. Used by test
// doubles scripting server replies.
func EncodeResponse(resp Response) ([]byte, error) {
	b, err := json.Marshal(&resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return append(b, EOT), nil
}

// DecodeResponse parses a framed response. A response carrying an error code
// is returned as a *ServerError so callers classify it uniformly.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response data")
	}
	if data[len(data)-1] == EOT {
		data = data[:len(data)-1]
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !resp.OK {
		return nil, &ServerError{
			Code:     resp.ErrorCode,
			SQLState: resp.SQLState,
			Message:  resp.Message,
		}
	}
	return &resp, nil
}
