// Package transport defines the low-level dispatch handle a connection uses
// to exchange framed requests and responses with a MySQL-compatible server.
package transport

import "context"

// Transport is the single ordered path through which one connection sends
// requests and receives responses. Implementations are not required to be
// safe for concurrent use; the owning connection serializes access.
type Transport interface {
	// Send transmits one framed request to the server.
	Send(ctx context.Context, data []byte) error

	// Receive reads one framed response from the server.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears down the underlying connection.
	Close() error

	// IsHealthy reports whether the transport is still usable.
	IsHealthy() bool
}

// Factory opens a new transport. Connections use it to open short-lived
// side channels, e.g. for out-of-band query cancellation.
type Factory func(ctx context.Context) (Transport, error)
