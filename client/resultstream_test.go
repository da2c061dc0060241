package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webmotors/mysqlcore/protocol"
	"github.com/webmotors/mysqlcore/transport/mock"
)

func TestResultStreamMultipleResultSets(t *testing.T) {
	conn := newTestConn(mock.New(), DefaultOptions())
	rs := newResultStream(conn, BehaviorDefault)
	rs.prime(&protocol.Response{
		ResultSets: []protocol.ResultSet{
			{Columns: []string{"a"}, Rows: [][]any{{1}, {2}}},
			{Columns: []string{"b", "c"}, Rows: [][]any{{"x", "y"}}},
		},
	})

	require.True(t, rs.NextResult())
	assert.Equal(t, []string{"a"}, rs.Columns())
	require.True(t, rs.Next())
	assert.Equal(t, 1, rs.Value(0))
	require.True(t, rs.Next())
	assert.False(t, rs.Next())

	require.True(t, rs.NextResult())
	assert.Equal(t, []string{"b", "c"}, rs.Columns())
	require.True(t, rs.Next())
	assert.Equal(t, "x", rs.Value(0))
	assert.Equal(t, "y", rs.Value(1))

	assert.False(t, rs.NextResult())
}

func TestResultStreamGuardsMisuse(t *testing.T) {
	conn := newTestConn(mock.New(), DefaultOptions())
	rs := newResultStream(conn, BehaviorDefault)

	// Unprimed stream yields nothing.
	assert.False(t, rs.NextResult())
	assert.False(t, rs.Next())
	assert.Nil(t, rs.Columns())
	assert.Nil(t, rs.Value(0))
	assert.Equal(t, int64(-1), rs.AffectedRows())
	assert.Equal(t, int64(-1), rs.LastInsertID())

	rs.prime(&protocol.Response{
		ResultSets: []protocol.ResultSet{{Columns: []string{"a"}, Rows: [][]any{{1}}}},
	})

	// Reading before NextResult, or out-of-range columns, stay nil.
	assert.False(t, rs.Next())
	require.True(t, rs.NextResult())
	require.True(t, rs.Next())
	assert.Nil(t, rs.Value(5))
	assert.Nil(t, rs.Value(-1))
}

func TestResultStreamCloseFreesSlotOnce(t *testing.T) {
	ctx := context.Background()
	mt := mock.New()
	conn := newTestConn(mt, DefaultOptions())

	rs := newResultStream(conn, BehaviorDefault)
	conn.setReader(rs)

	require.NoError(t, rs.Close(ctx))
	assert.Nil(t, conn.Reader())
	require.NoError(t, rs.Close(ctx))
	assert.Zero(t, mt.SendCallCount())

	// A closed stream yields nothing.
	assert.False(t, rs.NextResult())
}

func TestResultStreamCloseResetFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	opts := DefaultOptions()
	opts.Logger = logger

	mt := mock.New()
	mt.Script(errResponse(t, 1064, "syntax error"))
	conn := NewConnection(mt, opts)

	rs := newResultStream(conn, BehaviorSingleRow)
	rs.resetReadLimit = true
	conn.setReader(rs)

	require.NoError(t, rs.Close(ctx))
	assert.Nil(t, conn.Reader())
	assert.True(t, logger.has(WARN, "failed to reset row limit after stream close"))
}
