package client

import (
	"context"
	"sync/atomic"
	"time"
)

// timeoutGuard arms a one-shot timer around an execution. When it fires it
// asks the connection to handle the timeout, which kills the in-flight query
// out of band or aborts the connection; the blocked execution then fails and
// the orchestrator consults Expired to tell a timeout from any other
// failure.
type timeoutGuard struct {
	timer   *time.Timer
	expired atomic.Bool
	stopped atomic.Bool
	seconds int
}

// newTimeoutGuard arms a guard for the given duration. Zero or negative
// seconds arms nothing; the returned guard is inert.
func newTimeoutGuard(conn *Connection, logger Logger, seconds int) *timeoutGuard {
	g := &timeoutGuard{seconds: seconds}
	if seconds <= 0 {
		return g
	}

	g.timer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		if g.stopped.Load() {
			return
		}
		g.expired.Store(true)
		logger.Warn("command timeout elapsed",
			Int("timeout_seconds", seconds))
		conn.HandleTimeout(context.Background())
	})
	return g
}

// Expired reports whether the guard fired before being stopped.
func (g *timeoutGuard) Expired() bool {
	return g.expired.Load()
}

// Stop disarms the guard. Idempotent; safe on an inert guard.
func (g *timeoutGuard) Stop() {
	if g.stopped.Swap(true) {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
}
