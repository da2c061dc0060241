package client

import (
	"context"
	"errors"
	"strings"

	"github.com/webmotors/mysqlcore/protocol"
)

// ExecuteReader runs the command and returns a stream over its result sets.
// A (nil, nil) return means the execution was deliberately aborted, by
// Cancel or by a server-side kill, and the connection remains usable.
func (cmd *Command) ExecuteReader(ctx context.Context) (*ResultStream, error) {
	return cmd.ExecuteReaderWith(ctx, BehaviorDefault)
}

// ExecuteReaderWith runs the command with the given behavior flags.
func (cmd *Command) ExecuteReaderWith(ctx context.Context, behavior Behavior) (*ResultStream, error) {
	ic := newInterceptorContext(cmd.Text(), behavior)
	handled, err := cmd.offerInterceptors(ctx, ic, func(i CommandInterceptor) (bool, error) {
		return i.ExecuteReader(ctx, ic)
	})
	if err != nil {
		return nil, err
	}
	if handled {
		return ic.Stream, nil
	}
	return cmd.executeReader(ctx, behavior)
}

// ExecuteNonQuery runs the command and returns the affected-row count. A
// deliberately aborted execution returns (0, nil).
func (cmd *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	ic := newInterceptorContext(cmd.Text(), BehaviorDefault)
	handled, err := cmd.offerInterceptors(ctx, ic, func(i CommandInterceptor) (bool, error) {
		return i.ExecuteNonQuery(ctx, ic)
	})
	if err != nil {
		return 0, err
	}
	if handled {
		return ic.RecordCount, nil
	}

	rs, err := cmd.executeReader(ctx, BehaviorDefault)
	if err != nil {
		return 0, err
	}
	if rs == nil {
		return 0, nil
	}
	defer rs.Close(ctx)
	return rs.AffectedRows(), nil
}

// ExecuteScalar runs the command and returns the first column of the first
// row, or nil when the result is empty or the execution was deliberately
// aborted.
func (cmd *Command) ExecuteScalar(ctx context.Context) (any, error) {
	ic := newInterceptorContext(cmd.Text(), BehaviorSingleRow)
	handled, err := cmd.offerInterceptors(ctx, ic, func(i CommandInterceptor) (bool, error) {
		return i.ExecuteScalar(ctx, ic)
	})
	if err != nil {
		return nil, err
	}
	if handled {
		return ic.ScalarValue, nil
	}

	rs, err := cmd.executeReader(ctx, BehaviorSingleRow)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, nil
	}
	defer rs.Close(ctx)

	if rs.Next() {
		return rs.Value(0), nil
	}
	return nil, nil
}

// offerInterceptors walks the interceptor chain in order until one handles
// the execution or fails. A command without a connection, or a connection
// without interceptors, proceeds as if the chain were empty.
func (cmd *Command) offerInterceptors(ctx context.Context, ic *InterceptorContext, offer func(CommandInterceptor) (bool, error)) (bool, error) {
	conn := cmd.Connection()
	if conn == nil {
		return false, nil
	}
	for _, i := range conn.Interceptors() {
		handled, err := offer(i)
		if err != nil {
			return false, err
		}
		if handled {
			return true, nil
		}
	}
	return false, nil
}

// executeReader is the shared execution path behind every Execute variant.
func (cmd *Command) executeReader(ctx context.Context, behavior Behavior) (*ResultStream, error) {
	conn, text, err := cmd.precheck()
	if err != nil {
		return nil, err
	}

	text, kind, err := cmd.normalize(conn, text)
	if err != nil {
		return nil, err
	}

	// Batched companions are merged into the lead text before the
	// dispatch channel is taken: merging may need the session SQL mode,
	// which issues its own query.
	if len(cmd.Batch()) > 0 {
		text, err = cmd.mergedText(ctx, conn, text)
		if err != nil {
			return nil, err
		}
	}

	conn.dispatchMu.Lock()
	defer conn.dispatchMu.Unlock()

	// The slot may have been taken between the precheck and the lock.
	if conn.Reader() != nil && !cmd.isInternal() {
		return nil, errReaderAlreadyOpen()
	}

	timeout := cmd.Timeout()
	guard := newTimeoutGuard(conn, conn.logger, timeout)
	defer guard.Stop()

	conn.setLastInsertID(-1)

	stmt, err := cmd.statementFor(ctx, conn, kind, text)
	if err != nil {
		return cmd.failExecute(ctx, conn, nil, guard, timeout, err)
	}
	if err := stmt.Resolve(ctx, false); err != nil {
		return cmd.failExecute(ctx, conn, nil, guard, timeout, err)
	}

	rs := newResultStream(conn, behavior)
	if limit, ok := rowLimitFor(behavior); ok {
		if err := conn.sideCommand(ctx, limit); err != nil {
			return cmd.failExecute(ctx, conn, nil, guard, timeout, err)
		}
		rs.resetReadLimit = true
	}

	// An internal command running beside an open stream leaves the slot
	// with its current owner.
	if conn.Reader() == nil {
		conn.setReader(rs)
	}
	cmd.canceled.Store(false)

	resp, err := stmt.Execute(ctx, cmd.paramValues())
	if err != nil {
		return cmd.failExecute(ctx, conn, rs, guard, timeout, err)
	}

	rs.prime(resp)
	rs.NextResult()
	conn.setLastInsertID(resp.LastInsertID)
	return rs, nil
}

// rowLimitFor maps behavior flags to the session row-limit side command
// issued before execution.
func rowLimitFor(behavior Behavior) (string, bool) {
	switch {
	case behavior&BehaviorSchemaOnly != 0:
		return "SET SQL_SELECT_LIMIT=0", true
	case behavior&BehaviorSingleRow != 0:
		return "SET SQL_SELECT_LIMIT=1", true
	default:
		return "", false
	}
}

// precheck validates everything that can be checked before touching the
// server: connection presence and state, the reader slot, and the text.
func (cmd *Command) precheck() (*Connection, string, error) {
	conn := cmd.Connection()
	if conn == nil {
		return nil, "", errNoConnection()
	}
	if !conn.isExecutable() {
		return nil, "", errInvalidConnectionState(conn.State())
	}
	// Library-issued commands may run alongside an open stream; everyone
	// else waits for the slot.
	if conn.Reader() != nil && !cmd.isInternal() {
		return nil, "", errReaderAlreadyOpen()
	}

	text := strings.TrimSpace(cmd.Text())
	if text == "" {
		return nil, "", errCommandTextNotSet()
	}
	return conn, text, nil
}

// normalize derives the server-facing text from the command text and kind,
// and enforces replica read-only restrictions. It returns the final text and
// the statement kind that should execute it.
func (cmd *Command) normalize(conn *Connection, text string) (string, statementKind, error) {
	text = strings.TrimSuffix(text, ";")

	kind := stmtPreparable
	switch cmd.Kind() {
	case CommandTypeTableDirect:
		text = "SELECT * FROM " + text
	case CommandTypeStoredProcedure:
		if !strings.HasPrefix(strings.ToLower(text), "call ") {
			text = "call " + text
		}
		kind = stmtStoredProcedure
	default:
		// A bare word that is not a statement keyword can only be a
		// stored procedure name. Only the text is rewritten; the
		// statement variant still follows the declared command kind.
		if !strings.ContainsAny(text, " \t\r\n") && !isReservedWord(text) {
			text = "call " + text
		}
	}

	if conn.opts.ReplicatedReadOnly && !cmd.isInternal() {
		if err := checkReadOnly(text); err != nil {
			return "", 0, err
		}
	}
	return text, kind, nil
}

// checkReadOnly rejects statements a read-only replica must not run: anything
// that is not SELECT or SHOW, and reads carrying locking clauses.
func checkReadOnly(text string) error {
	lower := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "show") {
		return &ReplicationError{Text: text}
	}
	if strings.HasSuffix(lower, "for update") || strings.HasSuffix(lower, "lock in share mode") {
		return &ReplicationError{Text: text}
	}
	return nil
}

// statementFor returns the command's statement for the given text, reusing
// the existing one when the text has not changed and replacing it otherwise.
// A replaced prepared statement releases its server handle first. Caller
// holds the dispatch lock.
func (cmd *Command) statementFor(ctx context.Context, conn *Connection, kind statementKind, text string) (*Statement, error) {
	cmd.mu.Lock()
	stmt := cmd.stmt
	cmd.mu.Unlock()

	if stmt != nil && stmt.matches(text) {
		return stmt, nil
	}
	if stmt != nil {
		if err := stmt.Close(ctx); err != nil {
			conn.logger.Warn("failed to release stale statement",
				Error("error", err))
		}
	}

	stmt = newStatement(conn, kind, text)
	cmd.mu.Lock()
	cmd.stmt = stmt
	cmd.mu.Unlock()
	return stmt, nil
}

// paramValues flattens the command parameters into wire values.
func (cmd *Command) paramValues() []any {
	params := cmd.Parameters()
	if len(params) == 0 {
		return nil
	}
	values := make([]any, len(params))
	for i, p := range params {
		values[i] = p.Value
	}
	return values
}

// failExecute classifies an execution failure and settles the connection
// accordingly. The reader slot is always freed. A deliberate abort, whether
// from Cancel or a server-side kill, surfaces as (nil, nil) and leaves the
// connection usable.
func (cmd *Command) failExecute(ctx context.Context, conn *Connection, rs *ResultStream, guard *timeoutGuard, timeout int, err error) (*ResultStream, error) {
	conn.clearReader(rs)

	if guard.Expired() {
		return nil, &TimeoutError{Seconds: timeout, Cause: err}
	}

	var serr *protocol.ServerError
	if errors.As(err, &serr) {
		switch protocol.Classify(serr.Code) {
		case protocol.SeverityAborted:
			wasCanceled := cmd.canceled.Swap(false)
			conn.logger.Debug("execution aborted",
				Uint32("code", uint32(serr.Code)),
				Bool("canceled", wasCanceled))
			return nil, nil
		case protocol.SeverityFatal:
			_ = conn.Close(ctx)
			return nil, err
		case protocol.SeverityUnknown:
			_ = conn.Close(ctx)
			return nil, &FatalExecutionError{
				Message: "execution failed with unrecognized server error",
				Cause:   err,
			}
		default:
			return nil, err
		}
	}

	// Anything below the protocol layer means the stream framing can no
	// longer be trusted.
	_ = conn.Abort(ctx)
	return nil, &FatalExecutionError{Message: "execution failed", Cause: err}
}

// isInternal reports whether the command was created by the library itself.
func (cmd *Command) isInternal() bool {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	return cmd.internallyCreated
}

// Prepare resolves the command and compiles it server-side. Subsequent
// executions run over the prepared handle until the text changes.
func (cmd *Command) Prepare(ctx context.Context) error {
	conn, text, err := cmd.precheck()
	if err != nil {
		return err
	}
	text, kind, err := cmd.normalize(conn, text)
	if err != nil {
		return err
	}

	conn.dispatchMu.Lock()
	defer conn.dispatchMu.Unlock()

	stmt, err := cmd.statementFor(ctx, conn, kind, text)
	if err != nil {
		return err
	}
	if err := stmt.Resolve(ctx, true); err != nil {
		return err
	}
	return stmt.Prepare(ctx)
}

// Cancel asks the server to kill this command's in-flight query. It is safe
// to call from another goroutine while an Execute variant is blocked; the
// blocked call then returns the deliberate-abort result.
func (cmd *Command) Cancel(ctx context.Context) error {
	cmd.canceled.Store(true)

	conn := cmd.Connection()
	if conn == nil {
		return errNoConnection()
	}
	return conn.CancelQuery(ctx)
}

// Close releases the command's server-side resources. Idempotent.
func (cmd *Command) Close(ctx context.Context) error {
	cmd.mu.Lock()
	if cmd.closed {
		cmd.mu.Unlock()
		return nil
	}
	cmd.closed = true
	stmt := cmd.stmt
	conn := cmd.conn
	cmd.mu.Unlock()

	if stmt == nil || conn == nil || !stmt.IsPrepared() {
		return nil
	}

	conn.dispatchMu.Lock()
	defer conn.dispatchMu.Unlock()
	return stmt.Close(ctx)
}
