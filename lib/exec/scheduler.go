// Package exec implements the Scheduler/Executor (component G) and the
// Assertion Runner (component H): a worker-pool DAG walker that advances
// each task.Task through its lifecycle, with deterministic ready-queue
// tie-breaking and fail-fast Skipped propagation to every downstream task.
package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/sqlscheduler/sqlscheduler/lib/db"
	"github.com/sqlscheduler/sqlscheduler/lib/graph"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

// Options configures one Scheduler run.
type Options struct {
	Concurrency int
	Dev         bool
	DevSchema   string
	NoCache     bool
	CheckOnly   bool
	Refill      bool
	Start       util.Opt[time.Time]
	End         time.Time
}

type Scheduler struct {
	Pool    db.Querier
	Cache   *db.DevCache
	Logger  util.Logger
	Options Options

	// execSet is the set of task IDs in scope for the current Run, used to
	// decide which table references get dev-schema-resolved before a test
	// directive's query runs. Set at the top of Run.
	execSet map[task.ID]bool

	// Trace records every task ID in the order it reached a terminal state
	// (Success, Failed, or Skipped), so tests can check the scheduler
	// actually respects the DAG's partial order, not just its end states.
	Trace []task.ID
}

type execResult struct {
	id  task.ID
	err error
}

// Run drives every task in execSet to a terminal state and returns the
// aggregate of every task-level failure. A nil return means every task in
// execSet reached Success.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph, execSet map[task.ID]bool) error {
	s.execSet = execSet

	concurrency := util.Min(s.Options.Concurrency, len(execSet))
	if concurrency < 1 {
		concurrency = 1
	}

	waiting := map[task.ID]int{}
	for id := range execSet {
		count := 0
		for _, parent := range g.Parents[id] {
			if execSet[parent] {
				count++
			}
		}
		waiting[id] = count
	}

	ready := util.NewHeap(func(l, r interface{}) bool {
		return l.(task.ID).String() < r.(task.ID).String()
	})
	for id, count := range waiting {
		if count == 0 {
			ready.Push(id)
		}
	}

	resultCh := make(chan execResult)
	var errs *multierror.Error
	remaining := len(execSet)
	inFlight := 0
	cancelled := false

	for remaining > 0 {
		if !cancelled {
			select {
			case <-ctx.Done():
				cancelled = true
			default:
			}
		}

		if cancelled {
			for ready.Len() > 0 {
				id := ready.Pop().(task.ID)
				if g.Tasks[id].State != task.Pending {
					continue // stale entry: already skipped as an upstream failure's descendant
				}
				g.Tasks[id].Skip("run cancelled")
				s.Logger.Warning("skipping %s: run cancelled", id)
				s.Trace = append(s.Trace, id)
				remaining--
			}
			for id, count := range waiting {
				if count > 0 && g.Tasks[id].State == task.Pending {
					g.Tasks[id].Skip("run cancelled")
					s.Trace = append(s.Trace, id)
					remaining--
				}
			}
		} else {
			for inFlight < concurrency && ready.Len() > 0 {
				id := ready.Pop().(task.ID)
				t := g.Tasks[id]
				if t.State != task.Pending {
					continue // stale entry: already skipped as an upstream failure's descendant
				}
				if err := t.Transition(task.Ready); err != nil {
					return err
				}
				t.StartedAt = time.Now()
				inFlight++
				go func(t *task.Task) {
					resultCh <- execResult{id: t.ID, err: s.execute(ctx, t)}
				}(t)
			}
		}

		if inFlight == 0 {
			break
		}

		res := <-resultCh
		inFlight--
		remaining--
		t := g.Tasks[res.id]

		s.Trace = append(s.Trace, res.id)

		if res.err != nil {
			t.Fail(res.err.Error())
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", res.id, res.err))
			s.Logger.Error("%s failed: %s", res.id, res.err)
			remaining -= s.skipDescendants(g, execSet, res.id, waiting, ready)
			continue
		}

		s.Logger.Info("%s succeeded", res.id)
		if cancelled {
			continue
		}
		for _, child := range g.Children[res.id] {
			if !execSet[child] {
				continue
			}
			waiting[child]--
			if waiting[child] == 0 {
				ready.Push(child)
			}
		}
	}

	if errs != nil {
		return errs
	}
	if cancelled {
		return context.Canceled
	}
	return nil
}

// skipDescendants transitively marks every not-yet-terminal downstream
// task of failedID as Skipped, and returns how many it skipped so the
// caller can keep its remaining counter in sync.
func (s *Scheduler) skipDescendants(g *graph.Graph, execSet map[task.ID]bool, failedID task.ID, waiting map[task.ID]int, ready *util.Heap) int {
	skipped := 0
	var visit func(id task.ID)
	seen := util.NewSet(func(id task.ID) task.ID { return id })
	visit = func(id task.ID) {
		for _, child := range g.Children[id] {
			if !execSet[child] || seen.Has(child) {
				continue
			}
			seen.Add(child)
			t := g.Tasks[child]
			if !t.State.IsTerminal() {
				t.Skip(fmt.Sprintf("upstream task %s failed", failedID))
				s.Logger.Warning("skipping %s: upstream %s failed", child, failedID)
				skipped++
				waiting[child] = -1
			}
			visit(child)
		}
	}
	visit(failedID)
	return skipped
}

// execute runs one Task through the refined execution order SPEC_FULL.md
// defines: upstream tests, dev-cache check, DDL, INSERT (with incremental
// param binding), ANALYZE, own tests.
func (s *Scheduler) execute(ctx context.Context, t *task.Task) error {
	// --check builds and validates the DAG only; it must return before any
	// directive issues a live query, since Pool is never connected in this
	// mode (dbsteward.go leaves it nil).
	if s.Options.CheckOnly {
		return t.Transition(task.Success)
	}

	if err := t.Transition(task.RunningUpstreamTests); err != nil {
		return err
	}
	for _, d := range t.Tests {
		if IsUpstreamDirective(d) {
			// UpstreamCount/UpstreamGranularity name a table outside this
			// Task's own target and are never dev-schema-rewritten.
			if err := RunAssertion(ctx, s.Pool, s.effectiveID(t.ID), d); err != nil {
				return err
			}
		}
	}

	cacheHit := false
	if s.Options.Dev && !s.Options.NoCache && t.CacheKey != "" {
		hit, err := s.Cache.Hit(t.CacheKey)
		if err != nil {
			return err
		}
		cacheHit = hit
	}

	if !cacheHit {
		if err := t.Transition(task.RunningDDL); err != nil {
			return err
		}
		if t.DDLSQL != "" {
			runDDL := true
			if t.IsIncremental && !s.Options.Refill {
				own := s.effectiveID(t.ID)
				exists, err := s.Pool.TableExists(ctx, own.Schema, own.Table)
				if err != nil {
					return fmt.Errorf("ddl: checking whether %s already exists: %w", own, err)
				}
				runDDL = !exists
			}
			if runDDL {
				if err := s.Pool.Exec(ctx, t.DDLSQL); err != nil {
					return fmt.Errorf("ddl: %w", err)
				}
			} else {
				s.Logger.Info("%s: table already exists, skipping ddl for incremental refill", t.ID)
			}
		}

		if err := t.Transition(task.RunningInsert); err != nil {
			return err
		}
		params := s.insertParams(t)
		if err := s.Pool.Exec(ctx, t.InsertSQL, params...); err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		own := s.effectiveID(t.ID)
		if err := s.Pool.Exec(ctx, fmt.Sprintf("ANALYZE %s", quoteTable(own.Schema, own.Table))); err != nil {
			s.Logger.Warning("%s: analyze failed: %s", t.ID, err)
		}

		if s.Options.Dev && !s.Options.NoCache && t.CacheKey != "" {
			if err := s.Cache.Set(t.CacheKey); err != nil {
				return err
			}
		}
	}

	if err := t.Transition(task.RunningTests); err != nil {
		return err
	}
	own := s.effectiveID(t.ID)
	for _, d := range t.Tests {
		if IsUpstreamDirective(d) {
			continue
		}
		if rel, ok := d.(task.Relationship); ok {
			rel.Foreign = s.effectiveColumnRef(rel.Foreign)
			d = rel
		}
		if err := RunAssertion(ctx, s.Pool, own, d); err != nil {
			return err
		}
	}

	return t.Transition(task.Success)
}

// effectiveID resolves id to its dev-stage name when the run is in dev
// stage and id is itself in the execution set being rewritten; tables
// outside the execution set (e.g. most upstream/foreign references) are
// always queried under their literal schema.
func (s *Scheduler) effectiveID(id task.ID) task.ID {
	if s.Options.Dev && s.execSet[id] {
		return task.ID{Schema: s.Options.DevSchema, Table: id.Table}
	}
	return id
}

// effectiveColumnRef applies the same dev-schema resolution to a
// Relationship directive's foreign reference, per spec.md's rule that a
// foreign table only gets dev-rewritten when it is itself in scope.
func (s *Scheduler) effectiveColumnRef(ref task.ColumnRef) task.ColumnRef {
	resolved := s.effectiveID(task.ID{Schema: ref.Schema, Table: ref.Table})
	ref.Schema = resolved.Schema
	return ref
}

// insertParams binds $1/$2 for an incremental Task's --start/--end window.
// Non-incremental tasks take no positional parameters.
func (s *Scheduler) insertParams(t *task.Task) []interface{} {
	if !t.IsIncremental {
		return nil
	}
	return []interface{}{s.Options.Start.GetOrZero(), s.Options.End}
}
