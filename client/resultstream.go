package client

import (
	"context"

	"github.com/webmotors/mysqlcore/protocol"
)

// ResultStream is the forward-only cursor over one execution's result sets.
// Streams handed out by the Execute variants are already positioned on their
// first result set. At most one stream may be open per connection; closing
// it frees the slot and reverses any behavior side effects applied before
// execution.
type ResultStream struct {
	conn     *Connection
	behavior Behavior
	logger   Logger

	resp        *protocol.Response
	resultIndex int
	rowIndex    int
	closed      bool

	// resetReadLimit records that a row-limit SET was issued before
	// execution and must be undone when the stream closes.
	resetReadLimit bool
}

// newResultStream creates an unprimed stream bound to the connection's
// reader slot.
func newResultStream(conn *Connection, behavior Behavior) *ResultStream {
	return &ResultStream{
		conn:        conn,
		behavior:    behavior,
		logger:      conn.logger,
		resultIndex: -1,
	}
}

// prime attaches the server response and positions the cursor before the
// first result set.
func (rs *ResultStream) prime(resp *protocol.Response) {
	rs.resp = resp
	rs.resultIndex = -1
	rs.rowIndex = -1
}

// NextResult advances to the next result set.
func (rs *ResultStream) NextResult() bool {
	if rs.closed || rs.resp == nil {
		return false
	}
	if rs.resultIndex+1 >= len(rs.resp.ResultSets) {
		return false
	}
	rs.resultIndex++
	rs.rowIndex = -1
	return true
}

// Next advances to the next row of the current result set.
func (rs *ResultStream) Next() bool {
	if rs.closed || rs.resp == nil || rs.resultIndex < 0 {
		return false
	}
	set := rs.resp.ResultSets[rs.resultIndex]
	if rs.rowIndex+1 >= len(set.Rows) {
		return false
	}
	rs.rowIndex++
	return true
}

// Columns returns the column names of the current result set.
func (rs *ResultStream) Columns() []string {
	if rs.resp == nil || rs.resultIndex < 0 {
		return nil
	}
	return rs.resp.ResultSets[rs.resultIndex].Columns
}

// Value returns the value at column i of the current row.
func (rs *ResultStream) Value(i int) any {
	if rs.resp == nil || rs.resultIndex < 0 || rs.rowIndex < 0 {
		return nil
	}
	row := rs.resp.ResultSets[rs.resultIndex].Rows[rs.rowIndex]
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// AffectedRows returns the affected-row count reported by the server.
func (rs *ResultStream) AffectedRows() int64 {
	if rs.resp == nil {
		return -1
	}
	return rs.resp.AffectedRows
}

// LastInsertID returns the generated id reported by the server.
func (rs *ResultStream) LastInsertID() int64 {
	if rs.resp == nil {
		return -1
	}
	return rs.resp.LastInsertID
}

// Close releases the stream, frees the connection's reader slot, and undoes
// any session side effects applied for the execution. Idempotent. A failure
// to reset session state is logged, not returned; the slot is always freed.
func (rs *ResultStream) Close(ctx context.Context) error {
	if rs.closed {
		return nil
	}
	rs.closed = true

	if rs.resetReadLimit {
		rs.conn.dispatchMu.Lock()
		err := rs.conn.sideCommand(ctx, "SET SQL_SELECT_LIMIT=DEFAULT")
		rs.conn.dispatchMu.Unlock()
		if err != nil {
			rs.logger.Warn("failed to reset row limit after stream close",
				Error("error", err))
		}
	}

	rs.conn.clearReader(rs)
	return nil
}
