// Package client implements the command execution core of the driver: the
// Command orchestrator, its statement lifecycle, result streaming, batch
// merging, interceptors, and timeout handling.
//
// The unit of work is a Command bound to a Connection. All executions on a
// connection serialize over its dispatch channel, and at most one
// ResultStream may be open per connection at a time.
package client
