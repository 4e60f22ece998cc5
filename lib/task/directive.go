package task

import "fmt"

// TestDirective is the tagged union spec.md §3 describes, dispatched by the
// Assertion Runner via exhaustive type switch. The five variants here match
// SPEC_FULL.md's DATA MODEL supplement: the original three (Granularity,
// NotNull, Relationship) plus the two upstream-aggregate directives the
// distillation dropped.
type TestDirective interface {
	// Describe renders the directive's kind and arguments, e.g.
	// "granularity([a b])", for failure reporting.
	Describe() string

	isTestDirective()
}

type Granularity struct {
	Columns []string
}

func (g Granularity) Describe() string {
	return fmt.Sprintf("granularity(%v)", g.Columns)
}
func (Granularity) isTestDirective() {}

type NotNull struct {
	Columns []string
}

func (n NotNull) Describe() string {
	return fmt.Sprintf("not_null(%v)", n.Columns)
}
func (NotNull) isTestDirective() {}

// ColumnRef is a fully-qualified column reference: schema.table.column.
type ColumnRef struct {
	Schema string
	Table  string
	Column string
}

func (c ColumnRef) TableID() ID {
	return ID{Schema: c.Schema, Table: c.Table}
}

type Relationship struct {
	LocalColumn string
	Foreign     ColumnRef
}

func (r Relationship) Describe() string {
	return fmt.Sprintf("relationship(%s = %s.%s.%s)", r.LocalColumn, r.Foreign.Schema, r.Foreign.Table, r.Foreign.Column)
}
func (Relationship) isTestDirective() {}

// UpstreamCount asserts that an upstream table (not necessarily a suite
// Task) has more than Minimum rows.
type UpstreamCount struct {
	Target  ID
	Minimum int
}

func (u UpstreamCount) Describe() string {
	return fmt.Sprintf("upstream_count(%s %d)", u.Target, u.Minimum)
}
func (UpstreamCount) isTestDirective() {}

// UpstreamGranularity runs the granularity check against an upstream table
// instead of the Task's own target.
type UpstreamGranularity struct {
	Target  ID
	Columns []string
}

func (u UpstreamGranularity) Describe() string {
	return fmt.Sprintf("upstream_granularity(%s %v)", u.Target, u.Columns)
}
func (UpstreamGranularity) isTestDirective() {}
