package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webmotors/mysqlcore/protocol"
	"github.com/webmotors/mysqlcore/transport/mock"
)

// captureLogger records every log call so tests can assert on emitted
// warnings.
type captureLogger struct {
	mu      sync.Mutex
	entries []capturedEntry
}

type capturedEntry struct {
	level  LogLevel
	msg    string
	fields []Field
}

func (l *captureLogger) record(level LogLevel, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, capturedEntry{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) Debug(msg string, fields ...Field) { l.record(DEBUG, msg, fields) }
func (l *captureLogger) Info(msg string, fields ...Field)  { l.record(INFO, msg, fields) }
func (l *captureLogger) Warn(msg string, fields ...Field)  { l.record(WARN, msg, fields) }
func (l *captureLogger) Error(msg string, fields ...Field) { l.record(ERROR, msg, fields) }

func (l *captureLogger) has(level LogLevel, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// newTestConn builds an open connection over the given mock transport with
// logging silenced unless the options say otherwise.
func newTestConn(mt *mock.Transport, opts ConnectionOptions) *Connection {
	if opts.Logger == nil {
		opts.Logger = NewNoopLogger()
	}
	return NewConnection(mt, opts)
}

// okResponse encodes a successful framed response for scripting.
func okResponse(t *testing.T, resp protocol.Response) []byte {
	t.Helper()
	resp.OK = true
	data, err := protocol.EncodeResponse(resp)
	require.NoError(t, err)
	return data
}

// errResponse encodes a framed server error for scripting.
func errResponse(t *testing.T, code uint16, msg string) []byte {
	t.Helper()
	data, err := protocol.EncodeResponse(protocol.Response{
		OK:        false,
		ErrorCode: code,
		Message:   msg,
	})
	require.NoError(t, err)
	return data
}

// selectResponse encodes a one-result-set reply.
func selectResponse(t *testing.T, columns []string, rows [][]any) []byte {
	t.Helper()
	return okResponse(t, protocol.Response{
		ResultSets: []protocol.ResultSet{{Columns: columns, Rows: rows}},
	})
}

// sentRequests decodes everything the transport was asked to send.
func sentRequests(t *testing.T, mt *mock.Transport) []*protocol.Request {
	t.Helper()
	var out []*protocol.Request
	for _, raw := range mt.SendHistory() {
		req, err := protocol.DecodeRequest(raw)
		require.NoError(t, err)
		out = append(out, req)
	}
	return out
}
