package client

import (
	"context"
	"strings"

	"github.com/webmotors/mysqlcore/tokenizer"
)

// GetBatchableText returns the fragment of this command that can be merged
// onto a compatible lead statement: the parenthesized VALUES list for a
// plain INSERT, the full text for any other statement, and the empty string
// when the command declines batching. The answer is computed once and cached
// until the text changes.
func (cmd *Command) GetBatchableText(ctx context.Context) (string, error) {
	cmd.mu.Lock()
	if cmd.batchTextValid {
		text := cmd.batchText
		cmd.mu.Unlock()
		return text, nil
	}
	conn := cmd.conn
	text := strings.TrimSuffix(strings.TrimSpace(cmd.text), ";")
	cmd.mu.Unlock()

	fragment, err := batchableFragment(ctx, conn, text)
	if err != nil {
		return "", err
	}

	cmd.mu.Lock()
	cmd.batchText = fragment
	cmd.batchTextValid = true
	cmd.mu.Unlock()
	return fragment, nil
}

// batchableFragment derives the mergeable form of text. Only INSERT
// statements get fragment extraction; the scan honors the session SQL mode
// so quoted literals never confuse it.
func batchableFragment(ctx context.Context, conn *Connection, text string) (string, error) {
	if !strings.HasPrefix(strings.ToUpper(text), "INSERT") {
		return text, nil
	}

	// The INSERT scan needs the session SQL mode, which needs a session.
	if conn == nil {
		return "", errNoConnection()
	}

	mode, err := conn.SessionSQLMode(ctx)
	if err != nil {
		return "", err
	}

	tok := tokenizer.New(text)
	tok.AnsiQuotes = mode.AnsiQuotes
	tok.BackslashEscapes = !mode.NoBackslashEscapes

	// Skip ahead to the VALUES keyword.
	for {
		word, ok := tok.Next()
		if !ok {
			return "", nil
		}
		if !tok.Quoted() && strings.EqualFold(word, "VALUES") {
			break
		}
	}

	// Capture the balanced parenthesized list that follows.
	var fragment strings.Builder
	depth := 0
	for {
		word, ok := tok.Next()
		if !ok {
			return "", nil
		}
		if !tok.Quoted() {
			switch word {
			case "(":
				depth++
			case ")":
				depth--
			}
		}
		fragment.WriteString(word)
		if depth == 0 {
			break
		}
	}

	// A further tuple or an ON clause (ON DUPLICATE KEY UPDATE) after the
	// captured tuple makes appended value lists ambiguous; the command
	// declines batching.
	if next, ok := tok.Next(); ok && !tok.Quoted() &&
		(next == "," || strings.EqualFold(next, "ON")) {
		return "", nil
	}
	return fragment.String(), nil
}

// mergedText combines the lead text with every batched companion: value-list
// fragments append with a comma, whole statements with a separator. Declined
// companions fall back to whole-statement form.
func (cmd *Command) mergedText(ctx context.Context, conn *Connection, lead string) (string, error) {
	var merged strings.Builder
	merged.WriteString(lead)

	for _, other := range cmd.Batch() {
		fragment, err := other.GetBatchableText(ctx)
		if err != nil {
			return "", err
		}
		if fragment == "" {
			fragment = strings.TrimSuffix(strings.TrimSpace(other.Text()), ";")
			if fragment == "" {
				continue
			}
		}
		if strings.HasPrefix(fragment, "(") {
			merged.WriteString(",")
		} else {
			merged.WriteString("; ")
		}
		merged.WriteString(fragment)
	}
	return merged.String(), nil
}
