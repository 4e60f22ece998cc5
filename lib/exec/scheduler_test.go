package exec

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscheduler/sqlscheduler/lib/db"
	"github.com/sqlscheduler/sqlscheduler/lib/graph"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
	"github.com/sqlscheduler/sqlscheduler/lib/util/testutil"
)

type nullLogger struct{}

func (nullLogger) Fatal(string, ...interface{})               {}
func (nullLogger) FatalIfError(error, string, ...interface{}) {}
func (nullLogger) Error(string, ...interface{})               {}
func (nullLogger) ErrorIfError(error, string, ...interface{}) {}
func (nullLogger) Warning(string, ...interface{})             {}
func (nullLogger) Notice(string, ...interface{})               {}
func (nullLogger) Info(string, ...interface{})                {}
func (nullLogger) Trace(string, ...interface{})               {}

var _ util.Logger = nullLogger{}

func mkChain(ids ...task.ID) map[task.ID]*task.Task {
	tasks := map[task.ID]*task.Task{}
	for i, id := range ids {
		t := task.New(id)
		if i > 0 {
			t.Reads[ids[i-1]] = true
		}
		tasks[id] = t
	}
	return tasks
}

// TestScheduler_CheckOnlyRunsLinearChainToSuccess exercises S1: a pure
// dependency chain a -> b -> c run in --check mode (no live DB needed)
// reaches Success for every task.
func TestScheduler_CheckOnlyRunsLinearChainToSuccess(t *testing.T) {
	a := task.ID{Schema: "s", Table: "a"}
	b := task.ID{Schema: "s", Table: "b"}
	c := task.ID{Schema: "s", Table: "c"}
	tasks := mkChain(a, b, c)

	g, err := graph.Build(tasks)
	require.NoError(t, err)

	sched := &Scheduler{Logger: nullLogger{}, Options: Options{Concurrency: 4, CheckOnly: true}}
	execSet := g.ExecutionSet(nil, nil, false)
	require.NoError(t, sched.Run(context.Background(), g, execSet))

	assert.Equal(t, task.Success, tasks[a].State)
	assert.Equal(t, task.Success, tasks[b].State)
	assert.Equal(t, task.Success, tasks[c].State)

	// a -> b -> c is a straight chain, so b can't become ready until a
	// finishes and c can't become ready until b does: Trace must record
	// them in that exact relative order, regardless of worker count.
	testutil.AssertContainsSubseq(t, sched.Trace, []task.ID{a, b, c})
}

// TestScheduler_CheckOnlyNeverTouchesPoolEvenWithUpstreamDirectives exercises
// the --check path dbsteward.go actually drives: Pool is left nil, but a
// Task carrying an upstream_count directive must still reach Success
// without dereferencing it.
func TestScheduler_CheckOnlyNeverTouchesPoolEvenWithUpstreamDirectives(t *testing.T) {
	a := task.ID{Schema: "s", Table: "a"}
	tk := task.New(a)
	tk.Tests = []task.TestDirective{
		task.UpstreamCount{Target: task.ID{Schema: "s", Table: "raw"}, Minimum: 0},
	}
	tasks := map[task.ID]*task.Task{a: tk}

	g, err := graph.Build(tasks)
	require.NoError(t, err)

	sched := &Scheduler{Logger: nullLogger{}, Options: Options{Concurrency: 1, CheckOnly: true}}
	execSet := g.ExecutionSet(nil, nil, false)
	require.NoError(t, sched.Run(context.Background(), g, execSet))

	assert.Equal(t, task.Success, tasks[a].State)
}

func TestScheduler_CancelledContextSkipsRemainingTasks(t *testing.T) {
	a := task.ID{Schema: "s", Table: "a"}
	b := task.ID{Schema: "s", Table: "b"}
	tasks := mkChain(a, b)

	g, err := graph.Build(tasks)
	require.NoError(t, err)
	sched := &Scheduler{Logger: nullLogger{}, Options: Options{Concurrency: 4, CheckOnly: true}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	execSet := g.ExecutionSet(nil, nil, false)
	err = sched.Run(ctx, g, execSet)
	require.Error(t, err)
	assert.Equal(t, task.Skipped, tasks[b].State)
}

func TestScheduler_SkipDescendantsMarksOnlyNonTerminalDownstream(t *testing.T) {
	a := task.ID{Schema: "s", Table: "a"}
	b := task.ID{Schema: "s", Table: "b"}
	c := task.ID{Schema: "s", Table: "c"}
	d := task.ID{Schema: "s", Table: "d"}
	tasks := mkChain(a, b, c)
	tasks[d] = task.New(d) // unrelated task, not downstream of a

	g, err := graph.Build(tasks)
	require.NoError(t, err)

	sched := &Scheduler{Logger: nullLogger{}}
	waiting := map[task.ID]int{b: 1, c: 1, d: 0}
	ready := util.NewHeap(func(l, r interface{}) bool { return l.(task.ID).String() < r.(task.ID).String() })

	n := sched.skipDescendants(g, map[task.ID]bool{a: true, b: true, c: true, d: true}, a, waiting, ready)

	assert.Equal(t, 2, n)
	assert.Equal(t, task.Skipped, tasks[b].State)
	assert.Equal(t, task.Skipped, tasks[c].State)
	assert.Equal(t, task.Pending, tasks[d].State)
}

// TestScheduler_IncrementalTaskSkipsDDLWhenTableAlreadyExists exercises the
// refill probe: an incremental Task whose target table already exists
// skips DDL entirely (per sql_task.py's need_to_create_table) and goes
// straight to INSERT.
func TestScheduler_IncrementalTaskSkipsDDLWhenTableAlreadyExists(t *testing.T) {
	id := task.ID{Schema: "s", Table: "a"}
	tk := task.New(id)
	tk.DDLSQL = "CREATE TABLE s.a (id int);"
	tk.InsertSQL = "INSERT INTO s.a VALUES (1);"
	tk.IsIncremental = true
	tasks := map[task.ID]*task.Task{id: tk}

	g, err := graph.Build(tasks)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().TableExists(gomock.Any(), "s", "a").Return(true, nil)
	pool.EXPECT().Exec(gomock.Any(), tk.InsertSQL, gomock.Any(), gomock.Any()).Return(nil)
	pool.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(nil) // ANALYZE

	sched := &Scheduler{Pool: pool, Logger: nullLogger{}, Options: Options{Concurrency: 1}}
	execSet := g.ExecutionSet(nil, nil, false)
	require.NoError(t, sched.Run(context.Background(), g, execSet))
	assert.Equal(t, task.Success, tasks[id].State)
}

// TestScheduler_RefillForcesDDLEvenWhenTableExists mirrors the previous
// case with Options.Refill set: the probe is skipped entirely and DDL runs
// unconditionally, per config.Config.Refill's "force incremental tasks to
// rebuild" semantics.
func TestScheduler_RefillForcesDDLEvenWhenTableExists(t *testing.T) {
	id := task.ID{Schema: "s", Table: "a"}
	tk := task.New(id)
	tk.DDLSQL = "CREATE TABLE s.a (id int);"
	tk.InsertSQL = "INSERT INTO s.a VALUES (1);"
	tk.IsIncremental = true
	tasks := map[task.ID]*task.Task{id: tk}

	g, err := graph.Build(tasks)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().Exec(gomock.Any(), tk.DDLSQL).Return(nil)
	pool.EXPECT().Exec(gomock.Any(), tk.InsertSQL, gomock.Any(), gomock.Any()).Return(nil)
	pool.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(nil) // ANALYZE

	sched := &Scheduler{Pool: pool, Logger: nullLogger{}, Options: Options{Concurrency: 1, Refill: true}}
	execSet := g.ExecutionSet(nil, nil, false)
	require.NoError(t, sched.Run(context.Background(), g, execSet))
	assert.Equal(t, task.Success, tasks[id].State)
}
