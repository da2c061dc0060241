package protocol

import "fmt"

// MySQL server and client error codes the execution core cares about.
const (
	// Server-side codes.
	ErrCodeServerShutdown    uint16 = 1053 // ER_SERVER_SHUTDOWN
	ErrCodeLockWaitTimeout   uint16 = 1205 // ER_LOCK_WAIT_TIMEOUT
	ErrCodeLockDeadlock      uint16 = 1213 // ER_LOCK_DEADLOCK
	ErrCodeQueryInterrupted  uint16 = 1317 // ER_QUERY_INTERRUPTED
	ErrCodeFilsortAborted    uint16 = 1028 // ER_FILSORT_ABORT
	ErrCodeConnectionKilled  uint16 = 1927 // ER_CONNECTION_KILLED
	ErrCodeQueryTimeout      uint16 = 3024 // ER_QUERY_TIMEOUT

	// Client-side codes reported through the same channel.
	ErrCodeServerGone uint16 = 2006 // CR_SERVER_GONE_ERROR
	ErrCodeServerLost uint16 = 2013 // CR_SERVER_LOST
	ErrCodeUnknown    uint16 = 2014 // CR_COMMANDS_OUT_OF_SYNC
)

// Severity buckets a server error code for the orchestrator's recovery policy.
type Severity int

const (
	// SeverityRecoverable errors are re-raised without connection teardown.
	SeverityRecoverable Severity = iota
	// SeverityFatal errors require closing the connection before re-raising.
	SeverityFatal
	// SeverityAborted marks a cancelled query; not an error to the caller.
	SeverityAborted
	// SeverityUnknown covers a zero or unrecognized code; wrapped as a
	// generic fatal execution failure rather than leaked as a raw code.
	SeverityUnknown
)

// ServerError is an error condition reported by the server over the dispatch
// channel, identified by a MySQL error code.
type ServerError struct {
	Code     uint16
	SQLState string
	Message  string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("server error %d (%s): %s", e.Code, e.SQLState, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Classify maps a server error code onto the recovery policy bucket.
func Classify(code uint16) Severity {
	switch code {
	case 0:
		return SeverityUnknown
	case ErrCodeQueryInterrupted, ErrCodeFilsortAborted:
		return SeverityAborted
	case ErrCodeServerShutdown, ErrCodeConnectionKilled,
		ErrCodeServerGone, ErrCodeServerLost, ErrCodeUnknown:
		return SeverityFatal
	default:
		return SeverityRecoverable
	}
}

// IsFatal reports whether the code makes the connection untrustworthy.
func IsFatal(code uint16) bool {
	return Classify(code) == SeverityFatal
}

// IsQueryAborted reports whether the code means the in-flight query was
// killed rather than genuinely failed.
func IsQueryAborted(code uint16) bool {
	return Classify(code) == SeverityAborted
}
