package sqlparse

import (
	"strings"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

// Rewrite performs the dev-stage schema substitution spec.md §4.C
// describes: every schema-qualified identifier whose (schema, table) is a
// member of inSet has its schema segment replaced with devSchema (emitted
// unquoted); the table segment, and everything else in the source, is
// copied through byte-for-byte. Comments and string literals are never
// inspected for rewrite targets.
//
// Rewriting with an empty inSet is the identity function; rewriting twice
// with the same (inSet, devSchema) is idempotent, since the dev schema name
// is assumed not to itself appear as a key in inSet.
func Rewrite(sql string, inSet map[task.ID]bool, devSchema string) string {
	if len(inSet) == 0 {
		return sql
	}

	tokens := Tokenize(sql)
	var out strings.Builder
	out.Grow(len(sql))

	cursor := 0
	i := 0
	for i < len(tokens) {
		if schemaTok, tableTok, ok := matchQualified(tokens, i); ok && matchesAny(schemaTok, tableTok, inSet) {
			out.WriteString(sql[cursor:schemaTok.Start])
			out.WriteString(devSchema)
			cursor = schemaTok.End
			i += matchedTokenCount(tokens, i)
			continue
		}
		i++
	}
	out.WriteString(sql[cursor:])
	return out.String()
}

// matchQualified looks for "ident . ident" starting at token index i,
// skipping over embedded Whitespace/comment tokens the way the extractor's
// Significant view does, but reporting token indices into the original
// (unfiltered) slice so rewrite can track byte offsets precisely.
func matchQualified(tokens []Token, i int) (Token, Token, bool) {
	j := skipTrivia(tokens, i)
	if j >= len(tokens) || !isIdentToken(tokens[j]) {
		return Token{}, Token{}, false
	}
	schemaTok := tokens[j]
	k := skipTrivia(tokens, j+1)
	if k >= len(tokens) || tokens[k].Kind != Punct || tokens[k].Text != "." {
		return Token{}, Token{}, false
	}
	m := skipTrivia(tokens, k+1)
	if m >= len(tokens) || !isIdentToken(tokens[m]) {
		return Token{}, Token{}, false
	}
	return schemaTok, tokens[m], true
}

// matchedTokenCount returns how many raw tokens (including trivia) the
// qualified identifier starting at i spans, so the scan can jump past it.
func matchedTokenCount(tokens []Token, i int) int {
	j := skipTrivia(tokens, i)
	k := skipTrivia(tokens, j+1)
	m := skipTrivia(tokens, k+1)
	return m - i + 1
}

func skipTrivia(tokens []Token, i int) int {
	for i < len(tokens) {
		switch tokens[i].Kind {
		case Whitespace, LineComment, BlockComment:
			i++
		default:
			return i
		}
	}
	return i
}

// matchesAny reports whether the (schema, table) pair the two tokens spell
// out is a member of inSet. Unquoted tokens compare case-insensitively;
// quoted tokens compare exactly, matching Postgres's own folding rules.
func matchesAny(schemaTok, tableTok Token, inSet map[task.ID]bool) bool {
	for id := range inSet {
		if tokenMatchesName(schemaTok, id.Schema) && tokenMatchesName(tableTok, id.Table) {
			return true
		}
	}
	return false
}

func tokenMatchesName(tok Token, name string) bool {
	if tok.Kind == Quoted {
		return tok.Value == name
	}
	return foldEqual(tok.Value, name)
}
