package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webmotors/mysqlcore/protocol"
	"github.com/webmotors/mysqlcore/transport/mock"
)

func TestStatementMatchesDetectsTextChange(t *testing.T) {
	conn := newTestConn(mock.New(), DefaultOptions())
	stmt := newStatement(conn, stmtPreparable, "SELECT 1")

	assert.True(t, stmt.matches("SELECT 1"))
	assert.False(t, stmt.matches("SELECT 2"))
	assert.False(t, stmt.matches("select 1"))
}

func TestResolvePreparableNeedsNoServer(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	conn := newTestConn(mt, DefaultOptions())
	stmt := newStatement(conn, stmtPreparable, "SELECT 1")

	require.NoError(t, stmt.Resolve(ctx, false))
	require.NoError(t, stmt.Resolve(ctx, false))
	assert.Zero(t, mt.SendCallCount())
}

func TestResolveStoredProcedureFetchesMetadataOnce(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	mt.Script(selectResponse(t,
		[]string{"Procedure", "sql_mode", "Create Procedure"},
		[][]any{{"get_users", "", "CREATE PROCEDURE get_users() BEGIN END"}}))
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtStoredProcedure, "call get_users")
	require.NoError(t, stmt.Resolve(ctx, false))
	require.NoError(t, stmt.Resolve(ctx, false))

	reqs := sentRequests(t, mt)
	require.Len(t, reqs, 1)
	assert.Equal(t, "SHOW CREATE PROCEDURE get_users", reqs[0].SQL)
	assert.Equal(t, "CREATE PROCEDURE get_users() BEGIN END", stmt.procMeta)
}

func TestProcedureName(t *testing.T) {
	assert.Equal(t, "get_users", procedureName("call get_users"))
	assert.Equal(t, "db.proc", procedureName("CALL db.proc(1, 2)"))
	assert.Equal(t, "", procedureName("SELECT 1"))
	assert.Equal(t, "", procedureName("call"))
}

func TestPrepareStoresHandle(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	mt.Script(okResponse(t, protocol.Response{StatementID: 9}))
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtPreparable, "SELECT ?")
	require.NoError(t, stmt.Prepare(ctx))
	assert.True(t, stmt.IsPrepared())
	assert.Equal(t, uint32(9), stmt.id)

	// Preparing again is a no-op.
	require.NoError(t, stmt.Prepare(ctx))
	assert.Equal(t, 1, mt.SendCallCount())

	reqs := sentRequests(t, mt)
	assert.Equal(t, protocol.OpPrepare, reqs[0].Op)
	assert.Equal(t, "SELECT ?", reqs[0].SQL)
}

func TestPrepareIgnoredByOptions(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	opts := DefaultOptions()
	opts.IgnorePrepare = true
	conn := newTestConn(mt, opts)

	stmt := newStatement(conn, stmtPreparable, "SELECT ?")
	require.NoError(t, stmt.Prepare(ctx))

	assert.False(t, stmt.IsPrepared())
	assert.Zero(t, mt.SendCallCount())
}

func TestExecutePreparedUsesHandle(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	mt.Script(okResponse(t, protocol.Response{StatementID: 3}))
	mt.Script(okResponse(t, protocol.Response{AffectedRows: 1}))
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtPreparable, "UPDATE t SET x = ?")
	require.NoError(t, stmt.Prepare(ctx))

	resp, err := stmt.Execute(ctx, []any{5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.AffectedRows)

	reqs := sentRequests(t, mt)
	require.Len(t, reqs, 2)
	assert.Equal(t, protocol.OpExecute, reqs[1].Op)
	assert.Equal(t, uint32(3), reqs[1].StatementID)
	assert.Empty(t, reqs[1].SQL)
}

func TestExecuteUnpreparedSendsText(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	mt.Script(okResponse(t, protocol.Response{AffectedRows: 2}))
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtPreparable, "DELETE FROM t")
	resp, err := stmt.Execute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.AffectedRows)

	reqs := sentRequests(t, mt)
	require.Len(t, reqs, 1)
	assert.Equal(t, protocol.OpQuery, reqs[0].Op)
	assert.Equal(t, "DELETE FROM t", reqs[0].SQL)
}

func TestCloseReleasesPreparedHandleOnce(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	mt.Script(okResponse(t, protocol.Response{StatementID: 4}))
	mt.Script(okResponse(t, protocol.Response{}))
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtPreparable, "SELECT ?")
	require.NoError(t, stmt.Prepare(ctx))

	require.NoError(t, stmt.Close(ctx))
	require.NoError(t, stmt.Close(ctx))

	reqs := sentRequests(t, mt)
	require.Len(t, reqs, 2)
	assert.Equal(t, protocol.OpStmtClose, reqs[1].Op)
	assert.Equal(t, uint32(4), reqs[1].StatementID)
}

func TestCloseUnpreparedIsLocal(t *testing.T) {
	mt := mock.New()
	conn := newTestConn(mt, DefaultOptions())

	stmt := newStatement(conn, stmtPreparable, "SELECT 1")
	require.NoError(t, stmt.Close(context.Background()))
	assert.Zero(t, mt.SendCallCount())
}
