package client

import (
	"strings"
	"sync"
)

// reservedKeywords is the process-wide set of reserved words consulted when
// deciding whether a bare single-word command is a statement or a stored
// procedure name. Loaded once, immutable afterwards; concurrent readers need
// no synchronization after the first load.
var (
	reservedKeywords map[string]struct{}
	keywordsOnce     sync.Once
)

// keywordList covers the statement-leading reserved words a bare identifier
// could be confused with.
var keywordList = []string{
	"ALTER", "ANALYZE", "BEGIN", "BINLOG", "CACHE", "CALL", "CHANGE",
	"CHECK", "CHECKSUM", "COMMIT", "CREATE", "DEALLOCATE", "DELETE",
	"DESC", "DESCRIBE", "DO", "DROP", "EXECUTE", "EXPLAIN", "FLUSH",
	"GRANT", "HANDLER", "HELP", "INSERT", "INSTALL", "KILL", "LOAD",
	"LOCK", "OPTIMIZE", "PREPARE", "PURGE", "RELEASE", "RENAME",
	"REPAIR", "REPLACE", "RESET", "RESIGNAL", "REVOKE", "ROLLBACK",
	"SAVEPOINT", "SELECT", "SET", "SHOW", "SHUTDOWN", "SIGNAL", "START",
	"STOP", "TRUNCATE", "UNINSTALL", "UNLOCK", "UPDATE", "USE", "VALUES",
	"WITH", "XA",
}

func loadKeywords() {
	reservedKeywords = make(map[string]struct{}, len(keywordList))
	for _, kw := range keywordList {
		reservedKeywords[kw] = struct{}{}
	}
}

// isReservedWord reports whether word (any case) is a reserved keyword.
func isReservedWord(word string) bool {
	keywordsOnce.Do(loadKeywords)
	_, ok := reservedKeywords[strings.ToUpper(word)]
	return ok
}
