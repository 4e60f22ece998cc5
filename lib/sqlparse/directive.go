package sqlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

// ParseDirectives scans every block-comment token in an INSERT script for
// lines matching `^\s*<kind>\s*:\s*<payload>\s*$`, one directive per line:
//
//	granularity: col[, col...]
//	not_null: col[, col...]
//	relationship: local_col = schema.table.col
//	upstream_count: schema.table n
//	upstream_granularity: schema.table col[, col...]
//
// Line comments and lines that don't match a known kind are not directives
// and are silently skipped; they may be ordinary commentary sharing a block
// comment with real directives.
func ParseDirectives(tokens []Token) ([]task.TestDirective, error) {
	var directives []task.TestDirective
	for _, t := range tokens {
		if t.Kind != BlockComment {
			continue
		}
		body := strings.TrimSuffix(strings.TrimPrefix(t.Text, "/*"), "*/")
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			kind, payload, ok := splitKind(line)
			if !ok {
				continue
			}
			d, err := parseDirective(kind, payload)
			if err != nil {
				return nil, fmt.Errorf("invalid test directive %q: %w", line, err)
			}
			if d != nil {
				directives = append(directives, d)
			}
		}
	}
	return directives, nil
}

// splitKind splits "kind: payload" on the first colon and reports whether
// kind (trimmed, case-insensitive) is one of the five recognized names.
func splitKind(line string) (kind, payload string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	kind = strings.ToLower(strings.TrimSpace(line[:idx]))
	switch kind {
	case "granularity", "not_null", "relationship", "upstream_count", "upstream_granularity":
		return kind, strings.TrimSpace(line[idx+1:]), true
	default:
		return "", "", false
	}
}

func parseDirective(kind, payload string) (task.TestDirective, error) {
	switch kind {
	case "granularity":
		cols := splitCols(payload)
		if len(cols) == 0 {
			return nil, fmt.Errorf("granularity requires at least one column, got %q", payload)
		}
		return task.Granularity{Columns: cols}, nil

	case "not_null":
		cols := splitCols(payload)
		if len(cols) == 0 {
			return nil, fmt.Errorf("not_null requires at least one column, got %q", payload)
		}
		return task.NotNull{Columns: cols}, nil

	case "relationship":
		return parseRelationship(payload)

	case "upstream_count":
		return parseUpstreamCount(payload)

	case "upstream_granularity":
		return parseUpstreamGranularity(payload)

	default:
		return nil, fmt.Errorf("unknown directive %q", kind)
	}
}

func splitCols(args string) []string {
	parts := strings.Split(args, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRelationship parses "local_col = schema.table.col".
func parseRelationship(args string) (task.TestDirective, error) {
	parts := strings.SplitN(args, "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected \"local_col = schema.table.col\", got %q", args)
	}
	local := strings.TrimSpace(parts[0])
	ref, err := parseColumnRef(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return task.Relationship{LocalColumn: local, Foreign: ref}, nil
}

func parseColumnRef(s string) (task.ColumnRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return task.ColumnRef{}, fmt.Errorf("expected schema.table.column, got %q", s)
	}
	return task.ColumnRef{Schema: strings.TrimSpace(parts[0]), Table: strings.TrimSpace(parts[1]), Column: strings.TrimSpace(parts[2])}, nil
}

// parseUpstreamCount parses "schema.table n".
func parseUpstreamCount(args string) (task.TestDirective, error) {
	idText, rest, ok := splitWord(args)
	if !ok {
		return nil, fmt.Errorf("expected \"schema.table n\", got %q", args)
	}
	id, ok := task.ParseID(idText)
	if !ok {
		return nil, fmt.Errorf("expected schema.table, got %q", idText)
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return nil, fmt.Errorf("expected integer minimum, got %q", rest)
	}
	return task.UpstreamCount{Target: id, Minimum: n}, nil
}

// parseUpstreamGranularity parses "schema.table col[, col...]".
func parseUpstreamGranularity(args string) (task.TestDirective, error) {
	idText, rest, ok := splitWord(args)
	if !ok {
		return nil, fmt.Errorf("expected \"schema.table col[, col...]\", got %q", args)
	}
	id, ok := task.ParseID(idText)
	if !ok {
		return nil, fmt.Errorf("expected schema.table, got %q", idText)
	}
	cols := splitCols(rest)
	if len(cols) == 0 {
		return nil, fmt.Errorf("upstream_granularity requires at least one column, got %q", rest)
	}
	return task.UpstreamGranularity{Target: id, Columns: cols}, nil
}

// splitWord splits on the first run of whitespace, returning the leading
// word and the (untrimmed) remainder.
func splitWord(s string) (word, rest string, ok bool) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}
