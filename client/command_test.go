package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webmotors/mysqlcore/transport/mock"
)

func TestSetTextDefaultValuesRewrite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "upper case suffix",
			in:   "INSERT INTO t DEFAULT VALUES",
			want: "INSERT INTO t () VALUES ()",
		},
		{
			name: "mixed case suffix",
			in:   "insert into t Default Values",
			want: "insert into t () VALUES ()",
		},
		{
			name: "suffix with trailing whitespace",
			in:   "INSERT INTO t DEFAULT VALUES  ",
			want: "INSERT INTO t () VALUES ()",
		},
		{
			name: "no rewrite mid statement",
			in:   "SELECT 'DEFAULT VALUES' AS x",
			want: "SELECT 'DEFAULT VALUES' AS x",
		},
		{
			name: "plain text untouched",
			in:   "SELECT 1",
			want: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(nil, tt.in)
			assert.Equal(t, tt.want, cmd.Text())
		})
	}
}

func TestSetTimeoutRejectsNegative(t *testing.T) {
	cmd := NewCommand(nil, "SELECT 1")
	err := cmd.SetTimeout(-1)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "timeout", argErr.Name)
}

func TestSetTimeoutClampsOversizedValues(t *testing.T) {
	logger := &captureLogger{}
	opts := DefaultOptions()
	opts.Logger = logger
	conn := NewConnection(mock.New(), opts)

	cmd := NewCommand(conn, "SELECT 1")
	require.NoError(t, cmd.SetTimeout(maxTimeoutSeconds+1))

	assert.Equal(t, maxTimeoutSeconds, cmd.Timeout())
	assert.True(t, logger.has(WARN, "command timeout clamped to maximum"))
}

func TestTimeoutFallsBackToConnectionDefault(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultCommandTimeout = 17
	conn := newTestConn(mock.New(), opts)

	cmd := NewCommand(conn, "SELECT 1")
	assert.Equal(t, 17, cmd.Timeout())

	require.NoError(t, cmd.SetTimeout(0))
	assert.Equal(t, 0, cmd.Timeout())

	require.NoError(t, cmd.SetTimeout(5))
	assert.Equal(t, 5, cmd.Timeout())
}

func TestTimeoutWithoutConnection(t *testing.T) {
	cmd := NewCommand(nil, "SELECT 1")
	assert.Equal(t, 0, cmd.Timeout())
}

func TestSetConnectionClearsTransactionAndStatement(t *testing.T) {
	connA := newTestConn(mock.New(), DefaultOptions())
	connB := newTestConn(mock.New(), DefaultOptions())

	cmd := NewCommand(connA, "SELECT 1")
	cmd.SetTransaction(&Transaction{ID: "tx-1"})
	require.NotNil(t, cmd.Transaction())

	cmd.SetConnection(connB)
	assert.Nil(t, cmd.Transaction())
	assert.Same(t, connB, cmd.Connection())
}

func TestAddParameter(t *testing.T) {
	cmd := NewCommand(nil, "SELECT ?")
	cmd.AddParameter("id", 7)
	cmd.AddParameter("name", "x")

	params := cmd.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, Parameter{Name: "id", Value: 7}, params[0])
	assert.Equal(t, Parameter{Name: "name", Value: "x"}, params[1])
}

func TestSetTextInvalidatesBatchCache(t *testing.T) {
	cmd := NewCommand(nil, "SELECT 1")
	cmd.mu.Lock()
	cmd.batchText = "stale"
	cmd.batchTextValid = true
	cmd.mu.Unlock()

	cmd.SetText("SELECT 2")

	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	assert.False(t, cmd.batchTextValid)
	assert.Empty(t, cmd.batchText)
}
