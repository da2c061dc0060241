package client

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
)

// CommandKind selects how the command text is interpreted.
type CommandKind int

const (
	// CommandTypeText treats the text as a SQL statement.
	CommandTypeText CommandKind = iota
	// CommandTypeTableDirect treats the text as a table name to select
	// all rows from.
	CommandTypeTableDirect
	// CommandTypeStoredProcedure treats the text as a routine name to
	// call.
	CommandTypeStoredProcedure
)

// Behavior flags adjust how a reader execution runs.
type Behavior int

const (
	// BehaviorDefault requests plain execution.
	BehaviorDefault Behavior = 0
	// BehaviorSchemaOnly requests column metadata without rows.
	BehaviorSchemaOnly Behavior = 1 << 0
	// BehaviorSingleRow requests at most one row.
	BehaviorSingleRow Behavior = 1 << 1
)

// maxTimeoutSeconds is the largest timeout expressible as a millisecond
// count in a signed 32-bit integer.
const maxTimeoutSeconds = math.MaxInt32 / 1000

// Parameter is one named command parameter.
type Parameter struct {
	Name  string
	Value any
}

// Transaction marks a command as participating in an explicit transaction.
// Transaction control itself lives outside this core; commands only track
// the association so it can be cleared on reassignment.
type Transaction struct {
	ID string
}

// Command is a single executable SQL operation bound to a connection. It
// holds the text, kind, parameters, timeout, and batch; the execution
// methods in this package orchestrate everything else.
//
// A Command is safe for use from one goroutine at a time. Cancel is the one
// exception: it may be called concurrently with a blocked execution.
type Command struct {
	mu sync.Mutex

	conn        *Connection
	text        string
	kind        CommandKind
	params      []Parameter
	timeoutSecs int
	timeoutSet  bool

	// internallyCreated exempts library-issued commands from replica
	// read-only enforcement.
	internallyCreated bool

	canceled atomic.Bool

	stmt *Statement
	tx   *Transaction

	batch          []*Command
	batchText      string
	batchTextValid bool

	closed bool
}

// NewCommand creates a text command bound to conn. Text may be empty and set
// later.
func NewCommand(conn *Connection, text string) *Command {
	cmd := &Command{conn: conn, kind: CommandTypeText}
	cmd.SetText(text)
	return cmd
}

// Text returns the current command text.
func (cmd *Command) Text() string {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.text
}

// SetText replaces the command text. A trailing DEFAULT VALUES clause is
// rewritten to the empty-list form the server accepts everywhere. Changing
// the text invalidates any resolved statement and cached batch text.
func (cmd *Command) SetText(text string) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()

	trimmed := strings.TrimSpace(text)
	if len(trimmed) >= len("DEFAULT VALUES") &&
		strings.EqualFold(trimmed[len(trimmed)-len("DEFAULT VALUES"):], "DEFAULT VALUES") {
		text = trimmed[:len(trimmed)-len("DEFAULT VALUES")] + "() VALUES ()"
	}

	cmd.text = text
	cmd.batchTextValid = false
	cmd.batchText = ""
}

// Kind returns the command kind.
func (cmd *Command) Kind() CommandKind {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.kind
}

// SetKind changes how the text is interpreted.
func (cmd *Command) SetKind(kind CommandKind) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.kind = kind
}

// Parameters returns the command's parameters in order.
func (cmd *Command) Parameters() []Parameter {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.params
}

// AddParameter appends a named parameter.
func (cmd *Command) AddParameter(name string, value any) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.params = append(cmd.params, Parameter{Name: name, Value: value})
}

// Timeout returns the effective timeout in seconds: the command's own value
// if one was set, otherwise the connection's default. Zero means no timeout.
func (cmd *Command) Timeout() int {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	if cmd.timeoutSet {
		return cmd.timeoutSecs
	}
	if cmd.conn != nil {
		return cmd.conn.opts.DefaultCommandTimeout
	}
	return 0
}

// SetTimeout sets the command timeout in seconds. Zero disables the timeout.
// Negative values are rejected. Values too large to express as signed 32-bit
// milliseconds are silently clamped, with a warning logged.
func (cmd *Command) SetTimeout(seconds int) error {
	if seconds < 0 {
		return &ArgumentError{Name: "timeout", Message: "timeout must not be negative"}
	}

	cmd.mu.Lock()
	defer cmd.mu.Unlock()

	if seconds > maxTimeoutSeconds {
		if cmd.conn != nil {
			cmd.conn.logger.Warn("command timeout clamped to maximum",
				Int("requested_seconds", seconds),
				Int("max_seconds", maxTimeoutSeconds))
		}
		seconds = maxTimeoutSeconds
	}

	cmd.timeoutSecs = seconds
	cmd.timeoutSet = true
	return nil
}

// Connection returns the command's connection.
func (cmd *Command) Connection() *Connection {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.conn
}

// SetConnection rebinds the command to another connection. Any transaction
// association belongs to the old connection and is cleared; resolved
// statement state is discarded too since prepared handles are per session.
func (cmd *Command) SetConnection(conn *Connection) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.conn = conn
	cmd.tx = nil
	cmd.stmt = nil
}

// Transaction returns the associated transaction, or nil.
func (cmd *Command) Transaction() *Transaction {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.tx
}

// SetTransaction associates the command with a transaction.
func (cmd *Command) SetTransaction(tx *Transaction) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.tx = tx
}

// markInternal exempts the command from replica read-only enforcement.
// Reserved for commands the library issues on its own behalf.
func (cmd *Command) markInternal() {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.internallyCreated = true
}

// AddToBatch appends another command whose execution should be merged with
// this one where possible.
func (cmd *Command) AddToBatch(other *Command) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	cmd.batch = append(cmd.batch, other)
	cmd.batchTextValid = false
	cmd.batchText = ""
}

// Batch returns the commands batched onto this one.
func (cmd *Command) Batch() []*Command {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.batch
}
