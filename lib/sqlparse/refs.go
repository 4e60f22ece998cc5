package sqlparse

import (
	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

// Refs is what the Reference Extractor finds in one script: every
// schema-qualified table it reads from, and every one it writes to. Reads
// may include tables outside the suite (e.g. reference data); Writes is
// validated against the owning Task's identity by the Suite Loader.
type Refs struct {
	Reads  map[task.ID]bool
	Writes []task.ID
}

func newRefs() Refs {
	return Refs{Reads: map[task.ID]bool{}}
}

// writeKeywordSeqs lists the DML keyword sequences that introduce a write
// target. Extract does not read this list: it matches these sequences, plus
// CREATE TABLE and DROP TABLE, inline through IsKeyword, case-insensitively.
var writeKeywordSeqs = [][]string{
	{"INSERT", "INTO"},
	{"UPDATE"},
	{"DELETE", "FROM"},
}

// Extract walks a token stream looking for the handful of clause shapes
// spec.md §4.B cares about: FROM/JOIN (reads), INSERT INTO/UPDATE/DELETE
// FROM/CREATE TABLE/DROP TABLE (writes). Anything else — subqueries,
// CTEs, window functions — is invisible to it; it only needs the
// schema-qualified identifier that immediately follows a recognized clause
// keyword.
func Extract(tokens []Token) Refs {
	refs := newRefs()
	sig := Significant(tokens)

	for i := 0; i < len(sig); i++ {
		switch {
		case IsKeyword(sig[i], "INSERT") && matchAt(sig, i+1, "INTO"):
			if id, consumed := qualifiedAt(sig, i+2); consumed > 0 {
				refs.Writes = append(refs.Writes, id)
				i += 1 + consumed
				continue
			}

		case IsKeyword(sig[i], "UPDATE"):
			if id, consumed := qualifiedAt(sig, i+1); consumed > 0 {
				refs.Writes = append(refs.Writes, id)
				i += consumed
				continue
			}

		case IsKeyword(sig[i], "DELETE") && matchAt(sig, i+1, "FROM"):
			if id, consumed := qualifiedAt(sig, i+2); consumed > 0 {
				refs.Writes = append(refs.Writes, id)
				i += 1 + consumed
				continue
			}

		case IsKeyword(sig[i], "CREATE") && matchAt(sig, i+1, "TABLE"):
			j := i + 2
			if matchAt(sig, j, "IF") && matchAt(sig, j+1, "NOT") && matchAt(sig, j+2, "EXISTS") {
				j += 3
			}
			if id, consumed := qualifiedAt(sig, j); consumed > 0 {
				refs.Writes = append(refs.Writes, id)
				i = j + consumed - 1
				continue
			}

		case IsKeyword(sig[i], "DROP") && matchAt(sig, i+1, "TABLE"):
			j := i + 2
			if matchAt(sig, j, "IF") && matchAt(sig, j+1, "EXISTS") {
				j += 2
			}
			if id, consumed := qualifiedAt(sig, j); consumed > 0 {
				refs.Writes = append(refs.Writes, id)
				i = j + consumed - 1
				continue
			}

		case IsKeyword(sig[i], "FROM"):
			if id, consumed := qualifiedAt(sig, i+1); consumed > 0 {
				refs.Reads[id] = true
				i += consumed
				continue
			}

		case IsKeyword(sig[i], "JOIN"):
			if id, consumed := qualifiedAt(sig, i+1); consumed > 0 {
				refs.Reads[id] = true
				i += consumed
				continue
			}
		}
	}

	return refs
}

func matchAt(tokens []Token, i int, word string) bool {
	if i < 0 || i >= len(tokens) {
		return false
	}
	return IsKeyword(tokens[i], word)
}

func isIdentToken(t Token) bool {
	return t.Kind == Word || t.Kind == Quoted
}

// qualifiedAt recognizes the three-token "ident . ident" shape starting at
// i and returns the resulting ID plus how many tokens it consumed (3), or
// (zero, 0) if there's no qualified identifier there. Bare, unqualified
// identifiers are ignored — the scheduler only tracks schema-qualified
// references.
func qualifiedAt(tokens []Token, i int) (task.ID, int) {
	if i < 0 || i+2 >= len(tokens) {
		return task.ID{}, 0
	}
	schemaTok, dotTok, tableTok := tokens[i], tokens[i+1], tokens[i+2]
	if !isIdentToken(schemaTok) || dotTok.Kind != Punct || dotTok.Text != "." || !isIdentToken(tableTok) {
		return task.ID{}, 0
	}
	return task.ID{Schema: schemaTok.Value, Table: tableTok.Value}, 3
}
