package config

import "time"

// Args is the CLI's argument shape, parsed by go-arg from flags and
// environment variables. See SPEC_FULL.md's EXTERNAL INTERFACES section.
type Args struct {
	// Global Switches and Flags
	Verbose []bool `arg:"-v" help:"see more detail (verbose). -vvv is not advised for normal use."`
	Quiet   []bool `arg:"-q" help:"see less detail (quiet)."`
	Debug   bool   `arg:"--debug" help:"display extended information about errors. Automatically implies -vv."`
	Version bool   `arg:"--version" help:"print the version and exit"`

	// Suite location
	DDLDir    string `arg:"--ddl-dir,required,env:SQL_SCHEDULER_DDL_DIRECTORY" help:"directory of <schema>.<table>.sql DDL scripts"`
	InsertDir string `arg:"--insert-dir,required,env:SQL_SCHEDULER_INSERT_DIRECTORY" help:"directory of <schema>.<table>.sql INSERT scripts"`

	// Target database
	DSN    string  `arg:"--dsn,env:SQL_SCHEDULER_DSN" help:"postgres connection string. A key=value DSN without password= gets --db-password appended, or a prompted one; a URL-form DSN with an @ is used as given."`
	DBPass *string `arg:"--db-password,env:SQL_SCHEDULER_PASSWORD" help:"password to append to --dsn if it doesn't already carry one"`

	// Stage: --dev/--prod are authoritative when given; --stage (or its env
	// fallback) only applies when neither flag is set.
	Dev       bool   `arg:"--dev" help:"run against the dev schema, rewriting every in-scope table reference to --dev-schema"`
	Prod      bool   `arg:"--prod" help:"run against the real target schemas (default)"`
	Stage     string `arg:"--stage,env:SQL_SCHEDULER_STAGE" help:"prod or dev; used when neither --dev nor --prod is given"`
	DevSchema string `arg:"--dev-schema,env:SQL_SCHEDULER_DEV_SCHEMA" help:"schema name substituted for every in-scope table when running in the dev stage; required in the dev stage"`

	// Scope selection
	Targets      []string `arg:"-t,--target,separate" help:"schema.table to run; repeatable. Defaults to every table in the suite."`
	Exclusions   []string `arg:"-e,--exclusion,separate" help:"schema.table to exclude from the run; repeatable. Wins over --dependencies."`
	Dependencies bool     `arg:"--dependencies" help:"also run every transitive upstream dependency of each --target"`

	// Execution mode
	Check       bool `arg:"--check" help:"validate the suite and resolve execution order without touching data"`
	Concurrency int  `arg:"--concurrency,env:SQL_SCHEDULER_CONCURRENCY" default:"4" help:"maximum number of tasks running at once"`

	// Dev-stage cache
	NoCache       bool          `arg:"--no-cache" help:"ignore and bypass the dev-stage cache"`
	ClearCache    bool          `arg:"--clear-cache" help:"delete every dev-stage cache entry and exit"`
	CacheDir      string        `arg:"--cache-dir" default:".sql-scheduler-cache" help:"directory the dev-stage cache is stored in"`
	CacheDuration time.Duration `arg:"--cache-duration,env:SQL_SCHEDULER_CACHE_DURATION" default:"24h" help:"how long a dev-stage cache entry stays valid"`

	// Incremental tasks
	Refill bool      `arg:"--refill" help:"run incremental tasks' DDL even when their table already exists, and drop any --start lower bound"`
	Start  string    `arg:"--start" help:"RFC3339 start of the window bound to $1 in incremental INSERT scripts"`
	End    string    `arg:"--end" help:"RFC3339 end of the window bound to $2 in incremental INSERT scripts"`

	// Output
	SimpleOutput bool `arg:"--simple-output" help:"print only id and state for each task, without column padding or failure cause"`
}
