package client

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InterceptorContext carries one execution request through the interceptor
// chain. An interceptor that satisfies the request populates the matching
// result field and reports handled; the orchestrator then returns that
// result without touching the server.
type InterceptorContext struct {
	// Text is the raw command text, before any normalization.
	Text string

	// Behavior carries the requested reader behavior flags.
	Behavior Behavior

	// TraceID uniquely identifies this execution attempt.
	TraceID string

	// StartTime is when the execution was requested.
	StartTime time.Time

	// Metadata allows interceptors to stash arbitrary data.
	Metadata map[string]interface{}

	// RecordCount is the result of a handled non-query execution.
	RecordCount int64

	// ScalarValue is the result of a handled scalar execution.
	ScalarValue interface{}

	// Stream is the result of a handled reader execution.
	Stream *ResultStream
}

// newInterceptorContext creates a context for one execution attempt.
func newInterceptorContext(text string, behavior Behavior) *InterceptorContext {
	return &InterceptorContext{
		Text:      text,
		Behavior:  behavior,
		TraceID:   uuid.New().String(),
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// CommandInterceptor is a caller-supplied capability object given first
// refusal on every execution variant. Returning handled=true short-circuits
// execution entirely: no normalization, locking, or server interaction
// happens. Returning an error aborts the execution with that error.
//
// Interceptors are owned by the connection's environment, not the command;
// absence of interceptors is always safe (no-op).
type CommandInterceptor interface {
	// Name returns the unique name of this interceptor.
	Name() string

	// ExecuteNonQuery is offered a non-query execution. A handling
	// interceptor populates ic.RecordCount.
	ExecuteNonQuery(ctx context.Context, ic *InterceptorContext) (handled bool, err error)

	// ExecuteReader is offered a reader execution. A handling interceptor
	// populates ic.Stream.
	ExecuteReader(ctx context.Context, ic *InterceptorContext) (handled bool, err error)

	// ExecuteScalar is offered a scalar execution. A handling interceptor
	// populates ic.ScalarValue.
	ExecuteScalar(ctx context.Context, ic *InterceptorContext) (handled bool, err error)
}

// BaseInterceptor declines every call. Embed it to implement only the
// variants an interceptor cares about.
type BaseInterceptor struct{}

func (BaseInterceptor) ExecuteNonQuery(ctx context.Context, ic *InterceptorContext) (bool, error) {
	return false, nil
}

func (BaseInterceptor) ExecuteReader(ctx context.Context, ic *InterceptorContext) (bool, error) {
	return false, nil
}

func (BaseInterceptor) ExecuteScalar(ctx context.Context, ic *InterceptorContext) (bool, error) {
	return false, nil
}

// LoggingInterceptor logs every offered execution and always declines, so
// execution proceeds normally. Useful as an audit tap.
type LoggingInterceptor struct {
	BaseInterceptor
	logger Logger
}

// NewLoggingInterceptor creates a logging interceptor.
func NewLoggingInterceptor(logger Logger) *LoggingInterceptor {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &LoggingInterceptor{logger: logger}
}

func (h *LoggingInterceptor) Name() string { return "logging" }

func (h *LoggingInterceptor) ExecuteNonQuery(ctx context.Context, ic *InterceptorContext) (bool, error) {
	h.logger.Debug("executing non-query",
		String("text", ic.Text),
		String("trace_id", ic.TraceID))
	return false, nil
}

func (h *LoggingInterceptor) ExecuteReader(ctx context.Context, ic *InterceptorContext) (bool, error) {
	h.logger.Debug("executing reader",
		String("text", ic.Text),
		Int("behavior", int(ic.Behavior)),
		String("trace_id", ic.TraceID))
	return false, nil
}

func (h *LoggingInterceptor) ExecuteScalar(ctx context.Context, ic *InterceptorContext) (bool, error) {
	h.logger.Debug("executing scalar",
		String("text", ic.Text),
		String("trace_id", ic.TraceID))
	return false, nil
}
