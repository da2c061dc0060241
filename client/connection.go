package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/webmotors/mysqlcore/protocol"
	"github.com/webmotors/mysqlcore/transport"
)

// ConnectionState represents the usability of a connection.
type ConnectionState int

const (
	// StateClosed indicates the connection was closed gracefully.
	StateClosed ConnectionState = iota
	// StateConnecting indicates a connection attempt in progress.
	StateConnecting
	// StateOpen indicates an established, usable connection.
	StateOpen
	// StateSoftClosed indicates a connection marked for closing that may
	// still finish executing commands.
	StateSoftClosed
	// StateAborted indicates the connection was hard-closed after a fatal
	// failure and must never be reused or pooled.
	StateAborted
)

// String returns the string representation of the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateSoftClosed:
		return "SOFT_CLOSED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// SQLMode carries the session SQL-mode flags that change lexical
// conventions, learned once per connection via an out-of-band query.
type SQLMode struct {
	AnsiQuotes         bool
	NoBackslashEscapes bool
	Raw                string
}

// Connection owns one established server session: the transport handle, the
// dispatch lock serializing all commands using it, and the single active
// result-stream slot. Connection establishment and authentication happen
// outside this core; NewConnection takes an already-open transport.
type Connection struct {
	transport transport.Transport
	opts      ConnectionOptions
	logger    Logger

	// dispatchMu is the exclusive lock on the dispatch channel. Every
	// statement resolution, side effect, and execution against this
	// connection happens under it.
	dispatchMu sync.Mutex

	mu           sync.Mutex
	state        ConnectionState
	activeReader *ResultStream
	lastInsertID int64
	sqlMode      *SQLMode
}

// NewConnection wraps an established transport in a Connection. The
// resulting connection is in the open state.
func NewConnection(t transport.Transport, opts ConnectionOptions) *Connection {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(opts.LogLevel, nil)
	}

	return &Connection{
		transport: t,
		opts:      opts,
		logger:    logger,
		state:     StateOpen,
	}
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// isExecutable reports whether commands may run: open or soft-closed.
func (c *Connection) isExecutable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen || c.state == StateSoftClosed
}

// SoftClose marks the connection as closing while allowing in-flight and
// already-issued commands to finish.
func (c *Connection) SoftClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen {
		c.state = StateSoftClosed
	}
}

// Reader returns the active result stream, or nil when the slot is free.
func (c *Connection) Reader() *ResultStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeReader
}

// setReader installs rs as the connection's active result stream.
func (c *Connection) setReader(rs *ResultStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeReader = rs
}

// clearReader frees the slot if rs currently occupies it. A stream that was
// never installed, or a nil rs, leaves the slot with its current owner.
func (c *Connection) clearReader(rs *ResultStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rs != nil && c.activeReader == rs {
		c.activeReader = nil
	}
}

// LastInsertID returns the id generated by the most recent execution, or -1
// while an execution is in flight.
func (c *Connection) LastInsertID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastInsertID
}

func (c *Connection) setLastInsertID(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastInsertID = v
}

// Interceptors returns the ordered interceptor chain; may be empty.
func (c *Connection) Interceptors() []CommandInterceptor {
	return c.opts.Interceptors
}

// roundTrip sends one request and decodes its response. Callers must hold
// dispatchMu; the dispatch channel admits one request/response pair at a
// time.
func (c *Connection) roundTrip(ctx context.Context, req protocol.Request) (*protocol.Response, error) {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := c.transport.Send(ctx, data); err != nil {
		return nil, err
	}
	raw, err := c.transport.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeResponse(raw)
}

// sideCommand issues a synchronous auxiliary statement, e.g. a row-limit
// SET. Callers must hold dispatchMu.
func (c *Connection) sideCommand(ctx context.Context, sql string) error {
	_, err := c.roundTrip(ctx, protocol.Request{Op: protocol.OpQuery, SQL: sql})
	return err
}

// SessionSQLMode returns the session SQL-mode flags, querying the server on
// first use and caching the result for the connection's lifetime. Must not
// be called while holding dispatchMu.
func (c *Connection) SessionSQLMode(ctx context.Context) (SQLMode, error) {
	c.mu.Lock()
	cached := c.sqlMode
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	c.dispatchMu.Lock()
	resp, err := c.roundTrip(ctx, protocol.Request{
		Op:  protocol.OpQuery,
		SQL: "SELECT @@SESSION.sql_mode",
	})
	c.dispatchMu.Unlock()
	if err != nil {
		return SQLMode{}, fmt.Errorf("query session sql_mode: %w", err)
	}

	raw := ""
	if len(resp.ResultSets) > 0 && len(resp.ResultSets[0].Rows) > 0 && len(resp.ResultSets[0].Rows[0]) > 0 {
		raw, _ = resp.ResultSets[0].Rows[0][0].(string)
	}
	mode := parseSQLMode(raw)

	c.mu.Lock()
	c.sqlMode = &mode
	c.mu.Unlock()
	return mode, nil
}

// parseSQLMode extracts the lexical-convention flags from a raw sql_mode
// value.
func parseSQLMode(raw string) SQLMode {
	mode := SQLMode{Raw: raw}
	for _, flag := range strings.Split(raw, ",") {
		switch strings.ToUpper(strings.TrimSpace(flag)) {
		case "ANSI_QUOTES":
			mode.AnsiQuotes = true
		case "NO_BACKSLASH_ESCAPES":
			mode.NoBackslashEscapes = true
		}
	}
	return mode
}

// CancelQuery signals the server out of band to kill this connection's
// in-flight query. It opens a short-lived side channel so the request does
// not contend with the blocked dispatch channel.
func (c *Connection) CancelQuery(ctx context.Context) error {
	if c.opts.SideChannel == nil {
		return fmt.Errorf("no side channel configured for query cancellation")
	}

	side, err := c.opts.SideChannel(ctx)
	if err != nil {
		return fmt.Errorf("open cancellation channel: %w", err)
	}
	defer side.Close()

	data, err := protocol.EncodeRequest(protocol.Request{
		Op:       protocol.OpKillQuery,
		ThreadID: c.opts.ServerThreadID,
	})
	if err != nil {
		return err
	}
	if err := side.Send(ctx, data); err != nil {
		return err
	}
	raw, err := side.Receive(ctx)
	if err != nil {
		return err
	}
	_, err = protocol.DecodeResponse(raw)
	return err
}

// HandleTimeout reacts to an elapsed command deadline: it tries to kill the
// in-flight query out of band, and hard-aborts the connection if that is
// not possible. Either way the blocked execution fails promptly.
func (c *Connection) HandleTimeout(ctx context.Context) {
	if err := c.CancelQuery(ctx); err != nil {
		c.logger.Warn("timeout cancellation failed, aborting connection",
			Error("error", err))
		_ = c.Abort(ctx)
	}
}

// Close shuts the connection down gracefully.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateAborted {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.activeReader = nil
	c.mu.Unlock()

	c.logger.Debug("closing connection")
	return c.transport.Close()
}

// Abort hard-closes the connection after a fatal failure. An aborted
// connection must never be returned to any pool.
func (c *Connection) Abort(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateAborted {
		c.mu.Unlock()
		return nil
	}
	c.state = StateAborted
	c.activeReader = nil
	c.mu.Unlock()

	c.logger.Warn("aborting connection")
	return c.transport.Close()
}
