package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/webmotors/mysqlcore/protocol"
	"github.com/webmotors/mysqlcore/tokenizer"
)

// statementState tracks how far a statement has progressed toward being
// executable.
type statementState int

const (
	// stmtUnresolved means the statement has not yet derived its
	// server-facing form from the command text.
	stmtUnresolved statementState = iota
	// stmtResolved means the statement knows its final text and any
	// required metadata, and can execute directly.
	stmtResolved
	// stmtPrepared means the statement additionally holds a server-side
	// prepared handle.
	stmtPrepared
)

// statementKind selects the resolution strategy for a statement.
type statementKind int

const (
	// stmtPreparable covers plain text statements, which resolve without
	// any server interaction.
	stmtPreparable statementKind = iota
	// stmtStoredProcedure covers CALL invocations, which need routine
	// metadata fetched from the server before the first execution.
	stmtStoredProcedure
)

// Statement is the per-command execution strategy: it owns the resolved
// server-facing text, the fingerprint used to detect stale reuse, and the
// prepared handle when one exists. Statements never lock the dispatch
// channel themselves; the command orchestrator already holds it whenever a
// statement method touches the server.
type Statement struct {
	conn        *Connection
	kind        statementKind
	text        string
	fingerprint uint64
	state       statementState
	id          uint32
	closed      bool

	// procMeta is the raw routine definition fetched for stored procedure
	// statements, kept so parameter direction handling can consult it.
	procMeta string
}

// newStatement creates a statement for the given resolved text.
func newStatement(conn *Connection, kind statementKind, text string) *Statement {
	return &Statement{
		conn:        conn,
		kind:        kind,
		text:        text,
		fingerprint: xxhash.Sum64String(text),
	}
}

// matches reports whether this statement was built from the given text. A
// mismatch means the owning command's text changed and the statement is
// stale.
func (s *Statement) matches(text string) bool {
	return s.fingerprint == xxhash.Sum64String(text)
}

// Resolve derives everything the statement needs to execute. Idempotent;
// repeated calls after the first are no-ops. Stored procedure statements
// fetch the routine definition from the server on first resolution.
func (s *Statement) Resolve(ctx context.Context, forPreparation bool) error {
	if s.state != stmtUnresolved {
		return nil
	}

	if s.kind == stmtStoredProcedure && !forPreparation {
		if err := s.loadProcMetadata(ctx); err != nil {
			return err
		}
	}

	s.state = stmtResolved
	return nil
}

// loadProcMetadata fetches the routine definition for a CALL statement.
func (s *Statement) loadProcMetadata(ctx context.Context) error {
	name := procedureName(s.text)
	if name == "" {
		return nil
	}

	resp, err := s.conn.roundTrip(ctx, protocol.Request{
		Op:  protocol.OpQuery,
		SQL: "SHOW CREATE PROCEDURE " + name,
	})
	if err != nil {
		return fmt.Errorf("resolve stored procedure %q: %w", name, err)
	}
	if len(resp.ResultSets) > 0 && len(resp.ResultSets[0].Rows) > 0 {
		row := resp.ResultSets[0].Rows[0]
		if len(row) > 2 {
			s.procMeta, _ = row[2].(string)
		}
	}
	return nil
}

// procedureName extracts the routine name from a CALL statement.
func procedureName(text string) string {
	tok := tokenizer.New(text)
	first, ok := tok.Next()
	if !ok || strings.ToUpper(first) != "CALL" {
		return ""
	}
	name, ok := tok.Next()
	if !ok {
		return ""
	}
	return name
}

// Prepare compiles the statement server-side and stores the returned handle.
// When the connection ignores preparation it quietly does nothing; execution
// then proceeds over the text path.
func (s *Statement) Prepare(ctx context.Context) error {
	if s.state == stmtPrepared {
		return nil
	}

	if s.conn.opts.IgnorePrepare {
		s.conn.logger.Debug("prepare ignored by connection options",
			String("text", s.text))
		return nil
	}

	resp, err := s.conn.roundTrip(ctx, protocol.Request{
		Op:  protocol.OpPrepare,
		SQL: s.text,
	})
	if err != nil {
		return err
	}

	s.id = resp.StatementID
	s.state = stmtPrepared
	return nil
}

// IsPrepared reports whether the statement holds a server-side handle.
func (s *Statement) IsPrepared() bool {
	return s.state == stmtPrepared
}

// Execute runs the statement and returns the raw response. Prepared
// statements execute by handle, everything else by text.
func (s *Statement) Execute(ctx context.Context, params []any) (*protocol.Response, error) {
	if s.state == stmtPrepared {
		return s.conn.roundTrip(ctx, protocol.Request{
			Op:          protocol.OpExecute,
			StatementID: s.id,
			Params:      params,
		})
	}
	return s.conn.roundTrip(ctx, protocol.Request{
		Op:     protocol.OpQuery,
		SQL:    s.text,
		Params: params,
	})
}

// Close releases the server-side handle if one exists. Idempotent.
func (s *Statement) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.state != stmtPrepared {
		return nil
	}
	_, err := s.conn.roundTrip(ctx, protocol.Request{
		Op:          protocol.OpStmtClose,
		StatementID: s.id,
	})
	if err != nil {
		s.conn.logger.Warn("failed to release prepared statement",
			Uint32("statement_id", s.id),
			Error("error", err))
	}
	return err
}
