package exec

import "strings"

// quoteIdent double-quotes a Postgres identifier, escaping embedded quotes
// the way Postgres itself does. Used for the scheduler's own generated SQL
// (ANALYZE, assertion queries) where the identifier text comes from the
// suite's filenames rather than already-tokenized user SQL.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteTable(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}
