package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlscheduler/sqlscheduler/lib/db"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

// TestFailure reports one failed assertion, with enough detail to point
// the user at which directive and how badly it missed.
type TestFailure struct {
	Directive task.TestDirective
	Reason    string
}

func (f *TestFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Directive.Describe(), f.Reason)
}

// RunAssertion translates one TestDirective into a COUNT(*) query against
// pool and evaluates the result, per spec.md §4.H. own is the Task's own
// table, used as the default target for directives that don't name one.
func RunAssertion(ctx context.Context, pool db.Querier, own task.ID, d task.TestDirective) error {
	switch d := d.(type) {
	case task.Granularity:
		return assertGranularity(ctx, pool, own, d.Columns, d)
	case task.NotNull:
		return assertNotNull(ctx, pool, own, d.Columns, d)
	case task.Relationship:
		return assertRelationship(ctx, pool, own, d)
	case task.UpstreamCount:
		return assertUpstreamCount(ctx, pool, d)
	case task.UpstreamGranularity:
		return assertGranularity(ctx, pool, d.Target, d.Columns, d)
	default:
		return fmt.Errorf("unhandled directive type %T", d)
	}
}

func assertGranularity(ctx context.Context, pool db.Querier, target task.ID, cols []string, d task.TestDirective) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	tuple := strings.Join(quoted, ", ")
	q := fmt.Sprintf(`SELECT COUNT(*) - COUNT(DISTINCT (%s)) FROM %s`, tuple, quoteTable(target.Schema, target.Table))
	dupes, err := pool.QueryInt64(ctx, q)
	if err != nil {
		return err
	}
	if dupes != 0 {
		return &TestFailure{Directive: d, Reason: fmt.Sprintf("%d row(s) share a (%s) value", dupes, strings.Join(cols, ", "))}
	}
	return nil
}

func assertNotNull(ctx context.Context, pool db.Querier, target task.ID, cols []string, d task.TestDirective) error {
	for _, col := range cols {
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s IS NULL`, quoteTable(target.Schema, target.Table), quoteIdent(col))
		n, err := pool.QueryInt64(ctx, q)
		if err != nil {
			return err
		}
		if n != 0 {
			return &TestFailure{Directive: d, Reason: fmt.Sprintf("%d row(s) have a null %s", n, col)}
		}
	}
	return nil
}

func assertRelationship(ctx context.Context, pool db.Querier, own task.ID, d task.Relationship) error {
	q := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s t
		WHERE t.%s IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM %s f WHERE f.%s = t.%s)`,
		quoteTable(own.Schema, own.Table),
		quoteIdent(d.LocalColumn),
		quoteTable(d.Foreign.Schema, d.Foreign.Table),
		quoteIdent(d.Foreign.Column),
		quoteIdent(d.LocalColumn),
	)
	n, err := pool.QueryInt64(ctx, q)
	if err != nil {
		return err
	}
	if n != 0 {
		return &TestFailure{Directive: d, Reason: fmt.Sprintf("%d row(s) reference a missing %s.%s.%s", n, d.Foreign.Schema, d.Foreign.Table, d.Foreign.Column)}
	}
	return nil
}

func assertUpstreamCount(ctx context.Context, pool db.Querier, d task.UpstreamCount) error {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteTable(d.Target.Schema, d.Target.Table))
	n, err := pool.QueryInt64(ctx, q)
	if err != nil {
		return err
	}
	if n <= int64(d.Minimum) {
		return &TestFailure{Directive: d, Reason: fmt.Sprintf("found %d row(s), want more than %d", n, d.Minimum)}
	}
	return nil
}

// IsUpstreamDirective reports whether d must run before this Task's own
// DDL/INSERT, rather than after — the two upstream-aggregate directives
// check another table's existing state, not this Task's own output.
func IsUpstreamDirective(d task.TestDirective) bool {
	switch d.(type) {
	case task.UpstreamCount, task.UpstreamGranularity:
		return true
	default:
		return false
	}
}
