// Package mock provides a scripted transport double for package tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Transport implements transport.Transport with a scripted FIFO of
// responses. Each Receive pops the next scripted reply or error.
type Transport struct {
	mu          sync.Mutex
	replies     []reply
	sendErr     error
	sendDelay   time.Duration
	recvDelay   time.Duration
	closed      bool
	healthy     bool
	sendHistory [][]byte

	sendCalls  atomic.Int32
	recvCalls  atomic.Int32
	closeCalls atomic.Int32
}

type reply struct {
	data []byte
	err  error
}

// New creates an empty scripted transport.
func New() *Transport {
	return &Transport{healthy: true}
}

// Script appends a response to the FIFO of replies.
func (m *Transport) Script(data []byte) *Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply{data: data})
	return m
}

// ScriptError appends an error reply to the FIFO.
func (m *Transport) ScriptError(err error) *Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply{err: err})
	return m
}

// WithSendError makes every Send fail with err.
func (m *Transport) WithSendError(err error) *Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
	return m
}

// WithReceiveDelay delays each Receive, respecting context cancellation.
func (m *Transport) WithReceiveDelay(d time.Duration) *Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recvDelay = d
	return m
}

// WithHealthy overrides the health status.
func (m *Transport) WithHealthy(healthy bool) *Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// Send implements transport.Transport.
func (m *Transport) Send(ctx context.Context, data []byte) error {
	m.sendCalls.Add(1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	delay := m.sendDelay
	sendErr := m.sendErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if sendErr != nil {
		return sendErr
	}

	m.mu.Lock()
	m.sendHistory = append(m.sendHistory, data)
	m.mu.Unlock()
	return nil
}

// Receive implements transport.Transport.
func (m *Transport) Receive(ctx context.Context) ([]byte, error) {
	m.recvCalls.Add(1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("transport is closed")
	}
	delay := m.recvDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply available")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.data, nil
}

// Close implements transport.Transport.
func (m *Transport) Close() error {
	m.closeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsHealthy implements transport.Transport.
func (m *Transport) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy && !m.closed
}

// IsClosed reports whether Close has been called.
func (m *Transport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SendHistory returns a copy of all requests sent through the transport.
func (m *Transport) SendHistory() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sendHistory))
	copy(out, m.sendHistory)
	return out
}

// SendCallCount returns how many times Send was invoked.
func (m *Transport) SendCallCount() int { return int(m.sendCalls.Load()) }

// ReceiveCallCount returns how many times Receive was invoked.
func (m *Transport) ReceiveCallCount() int { return int(m.recvCalls.Load()) }

// CloseCallCount returns how many times Close was invoked.
func (m *Transport) CloseCallCount() int { return int(m.closeCalls.Load()) }
