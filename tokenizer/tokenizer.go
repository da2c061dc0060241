// Package tokenizer provides a sequential SQL token scanner. It understands
// just enough MySQL lexical structure for the command core: quoted literals
// and identifiers, comments, and punctuation, honoring the session's
// ANSI_QUOTES and NO_BACKSLASH_ESCAPES conventions. It is not a SQL parser.
package tokenizer

import "strings"

// Tokenizer walks SQL text and produces one token at a time.
type Tokenizer struct {
	// AnsiQuotes makes double quotes delimit identifiers instead of strings.
	AnsiQuotes bool

	// BackslashEscapes enables backslash escaping inside string literals.
	// Cleared when the session SQL mode contains NO_BACKSLASH_ESCAPES.
	BackslashEscapes bool

	text   string
	pos    int
	quoted bool
}

// New creates a tokenizer over text with MySQL default conventions
// (backslash escapes on, ANSI quotes off).
func New(text string) *Tokenizer {
	return &Tokenizer{
		BackslashEscapes: true,
		text:             text,
	}
}

// Quoted reports whether the most recent token was a quoted literal or
// quoted identifier. Keywords found while Quoted is true are just data.
func (t *Tokenizer) Quoted() bool {
	return t.quoted
}

// Next returns the next token and true, or "" and false at end of text.
// Quoted tokens are returned verbatim including their delimiters so that
// concatenating tokens reconstructs an equivalent statement fragment.
func (t *Tokenizer) Next() (string, bool) {
	t.quoted = false
	t.skipWhitespaceAndComments()
	if t.pos >= len(t.text) {
		return "", false
	}

	c := t.text[t.pos]
	switch {
	case c == '\'' || c == '`' || c == '"':
		return t.readQuoted(c), true
	case isWordByte(c):
		return t.readWord(), true
	default:
		t.pos++
		return string(c), true
	}
}

// skipWhitespaceAndComments advances past whitespace, -- and # line
// comments, and /* */ block comments.
func (t *Tokenizer) skipWhitespaceAndComments() {
	for t.pos < len(t.text) {
		c := t.text[t.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			t.pos++
		case c == '#':
			t.skipToLineEnd()
		case c == '-' && t.pos+2 < len(t.text) && t.text[t.pos+1] == '-' && isSpaceByte(t.text[t.pos+2]):
			t.skipToLineEnd()
		case c == '/' && t.pos+1 < len(t.text) && t.text[t.pos+1] == '*':
			end := strings.Index(t.text[t.pos+2:], "*/")
			if end < 0 {
				t.pos = len(t.text)
				return
			}
			t.pos += 2 + end + 2
		default:
			return
		}
	}
}

func (t *Tokenizer) skipToLineEnd() {
	for t.pos < len(t.text) && t.text[t.pos] != '\n' {
		t.pos++
	}
}

// readQuoted consumes a quoted region delimited by quote, handling doubled
// delimiters and, where the conventions allow, backslash escapes. The token
// keeps its delimiters.
func (t *Tokenizer) readQuoted(quote byte) string {
	start := t.pos
	t.pos++ // opening delimiter

	// Backslash escaping never applies inside backtick identifiers, nor
	// inside double-quoted identifiers under ANSI_QUOTES.
	escapable := t.BackslashEscapes && quote != '`' && !(quote == '"' && t.AnsiQuotes)

	for t.pos < len(t.text) {
		c := t.text[t.pos]
		if escapable && c == '\\' && t.pos+1 < len(t.text) {
			t.pos += 2
			continue
		}
		if c == quote {
			// Doubled delimiter is an escaped delimiter, not the end.
			if t.pos+1 < len(t.text) && t.text[t.pos+1] == quote {
				t.pos += 2
				continue
			}
			t.pos++
			break
		}
		t.pos++
	}

	t.quoted = true
	return t.text[start:t.pos]
}

// readWord consumes a run of identifier/number bytes.
func (t *Tokenizer) readWord() string {
	start := t.pos
	for t.pos < len(t.text) && isWordByte(t.text[t.pos]) {
		t.pos++
	}
	return t.text[start:t.pos]
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' || c == '@' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		c >= 0x80 // multibyte identifier characters pass through verbatim
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
