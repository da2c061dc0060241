package client

import (
	"github.com/webmotors/mysqlcore/transport"
)

// ConnectionOptions configures connection-scoped behavior of the command
// execution core.
type ConnectionOptions struct {
	// DefaultCommandTimeout is the timeout in seconds applied to commands
	// that never set an explicit timeout. Zero means no timeout.
	// Default: 30
	DefaultCommandTimeout int

	// IgnorePrepare makes Prepare a transparent no-op: statements resolve
	// but are never compiled server-side. Some server configurations
	// disable server-side preparation this way.
	// Default: false
	IgnorePrepare bool

	// ReplicatedReadOnly enforces replica read-only semantics: only
	// SELECT/SHOW statements without trailing locking clauses may execute,
	// unless the command was created internally by the library.
	// Default: false
	ReplicatedReadOnly bool

	// ServerThreadID is the server-side connection thread id obtained
	// during the handshake (performed outside this core). It addresses
	// out-of-band KILL QUERY requests.
	ServerThreadID uint32

	// SideChannel opens a short-lived secondary transport for out-of-band
	// requests such as query cancellation. When nil, cancellation falls
	// back to aborting the connection.
	SideChannel transport.Factory

	// Interceptors are offered first refusal on every execution, in order.
	// Zero interceptors is valid and common.
	Interceptors []CommandInterceptor

	// Logger is the logger implementation to use. If nil, a default
	// logger is created from LogLevel.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Default: "INFO"
	LogLevel string
}

// DefaultOptions returns ConnectionOptions with default values.
func DefaultOptions() ConnectionOptions {
	return ConnectionOptions{
		DefaultCommandTimeout: 30,
		LogLevel:              "INFO",
	}
}
