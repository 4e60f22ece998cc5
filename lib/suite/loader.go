// Package suite implements the Suite Loader: it walks a pair of
// directories holding DDL and INSERT scripts named "<schema>.<table>.sql",
// pairs them up into task.Task values, and runs them through sqlparse to
// populate each Task's read/write sets and test directives.
package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/sqlscheduler/sqlscheduler/lib/sqlparse"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

// IncrementalSentinel marks an INSERT script as incremental: the scheduler
// binds $1/$2 to --start/--end instead of running the script unparameterized.
const IncrementalSentinel = "sql-scheduler-incremental"

// LoadError wraps the aggregate of every problem the loader found, so
// callers see every bad file in one report instead of stopping at the
// first one.
type LoadError struct {
	Err *multierror.Error
}

func (e *LoadError) Error() string {
	return e.Err.Error()
}

// Dirs is the pair of script directories the loader reads from.
type Dirs struct {
	DDLDir    string
	InsertDir string
}

// Load scans dirs.InsertDir for "<schema>.<table>.sql" files, pairs each
// with its DDL counterpart in dirs.DDLDir, and returns the fully populated
// Task set keyed by ID. Every DDL script must have an INSERT partner and
// vice versa; either side missing its partner is a load-time error.
func Load(dirs Dirs) (map[task.ID]*task.Task, error) {
	inserts, err := scanDir(dirs.InsertDir)
	if err != nil {
		return nil, errors.Wrap(err, "scanning insert directory")
	}
	ddls, err := scanDir(dirs.DDLDir)
	if err != nil {
		return nil, errors.Wrap(err, "scanning ddl directory")
	}

	var errs *multierror.Error
	tasks := map[task.ID]*task.Task{}

	ids := util.MapKeys(inserts)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		ddlPath, ok := ddls[id]
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: insert file has no matching ddl file", inserts[id]))
			continue
		}
		t, err := buildTask(id, inserts[id], ddlPath)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		tasks[id] = t
	}

	// Any DDL file with no matching INSERT file is an orphan: the suite
	// has no Task to attach it to.
	for id, path := range ddls {
		if _, ok := inserts[id]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: ddl file has no matching insert file", path))
		}
	}

	if errs != nil {
		return nil, &LoadError{Err: errs}
	}
	return tasks, nil
}

func buildTask(id task.ID, insertPath string, ddlPath string) (*task.Task, error) {
	insertSQL, err := os.ReadFile(insertPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", insertPath)
	}

	ddlSQL, err := os.ReadFile(ddlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", ddlPath)
	}

	t := task.New(id)
	t.DDLSQL = string(ddlSQL)
	t.InsertSQL = string(insertSQL)

	// Reads, write-target validation, and test directives are all scoped
	// to the INSERT script only, per the original's sql_task.py reading
	// exclusively from self.get_insert() for _parse_dependencies and its
	// test regexes; the DDL script's own FROM/JOIN targets (e.g. a CREATE
	// TABLE AS SELECT) are not dependency edges, and a directive comment in
	// a DDL header is not a test the original ever ran.
	insertTokens := sqlparse.Tokenize(t.InsertSQL)
	insertRefs := sqlparse.Extract(insertTokens)

	for readID := range insertRefs.Reads {
		t.Reads[readID] = true
	}

	var writeErrs *multierror.Error
	for _, w := range insertRefs.Writes {
		if w != id {
			writeErrs = multierror.Append(writeErrs, fmt.Errorf(
				"%s: script writes to %s, which does not match its filename target %s", insertPath, w, id))
		}
	}
	if writeErrs != nil {
		return nil, writeErrs
	}

	directives, err := sqlparse.ParseDirectives(insertTokens)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", insertPath)
	}
	t.Tests = directives

	t.IsIncremental = hasSentinel(insertTokens)

	return t, nil
}

func hasSentinel(tokens []sqlparse.Token) bool {
	for _, tok := range tokens {
		switch tok.Kind {
		case sqlparse.LineComment, sqlparse.BlockComment:
			if strings.Contains(tok.Text, IncrementalSentinel) {
				return true
			}
		}
	}
	return false
}

// scanDir returns every "<schema>.<table>.sql" file in dir, keyed by the ID
// its filename spells out. A missing directory yields an empty map rather
// than a scan error; Load still rejects the resulting unpaired files.
func scanDir(dir string) (map[task.ID]string, error) {
	out := map[task.ID]string{}
	if dir == "" {
		return out, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".sql")
		id, ok := task.ParseID(stem)
		if !ok {
			return nil, fmt.Errorf("%s: filename must be \"<schema>.<table>.sql\"", entry.Name())
		}
		if existing, dup := out[id]; dup {
			return nil, fmt.Errorf("%s and %s both resolve to %s", existing, entry.Name(), id)
		}
		out[id] = filepath.Join(dir, entry.Name())
	}
	return out, nil
}
