package lib

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"

	"github.com/sqlscheduler/sqlscheduler/lib/config"
	"github.com/sqlscheduler/sqlscheduler/lib/db"
	execpkg "github.com/sqlscheduler/sqlscheduler/lib/exec"
	"github.com/sqlscheduler/sqlscheduler/lib/graph"
	"github.com/sqlscheduler/sqlscheduler/lib/suite"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

var Version = "1.0.0"

// App is the top-level orchestrator: it owns the logger, wires the Suite
// Loader through the DAG Builder to the Scheduler, and maps the result to
// a process exit code.
type App struct {
	logger zerolog.Logger
}

func NewApp() *App {
	return &App{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func (self *App) Fatal(s string, args ...interface{}) {
	self.logger.Fatal().Msgf(s, args...)
}

func (self *App) Warning(s string, args ...interface{}) {
	self.logger.Warn().Msgf(s, args...)
}

func (self *App) Notice(s string, args ...interface{}) {
	self.Info(s, args...)
}

func (self *App) Info(s string, args ...interface{}) {
	self.logger.Info().Msgf(s, args...)
}

func (self *App) Error(s string, args ...interface{}) {
	self.logger.Error().Msgf(s, args...)
}

func (self *App) ErrorIfError(err error, s string, args ...interface{}) {
	if err != nil {
		self.logger.Error().Err(err).Msgf(s, args...)
	}
}

func (self *App) FatalIfError(err error, s string, args ...interface{}) {
	if err != nil {
		self.logger.Fatal().Err(err).Msgf(s, args...)
	}
}

func (self *App) Trace(s string, args ...interface{}) {
	self.logger.Trace().Msgf(s, args...)
}

// asLogger exposes the App through util.Logger for packages that only
// want the narrow logging surface, not the whole App. App's method set
// already matches util.Logger exactly.
func (self *App) asLogger() util.Logger {
	return self
}

var _ util.Logger = (*App)(nil)

// setVerbosity shifts the logger's level the same way dbsteward's original
// set_verbosity did: -v/-q shift relative to Info, --debug forces Trace,
// clamped into zerolog's valid range.
func (self *App) setVerbosity(args *config.Args) {
	level := zerolog.InfoLevel
	if args.Debug {
		level = zerolog.TraceLevel
	}
	for _, v := range args.Verbose {
		if v {
			level -= 1
		} else {
			level += 1
		}
	}
	for _, q := range args.Quiet {
		if q {
			level += 1
		} else {
			level -= 1
		}
	}
	if level > zerolog.PanicLevel {
		level = zerolog.PanicLevel
	}
	if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}
	self.logger = self.logger.Level(level)
}

// ArgParse correlates to dbsteward's original arg_parse(): parse flags,
// set up verbosity, then run.
func (self *App) ArgParse() int {
	args := &config.Args{}
	arg.MustParse(args)
	self.setVerbosity(args)

	if args.Version {
		self.Info("sql-scheduler %s", Version)
		return 0
	}

	cfg, err := config.Build(*args)
	if err != nil {
		self.Error("%s", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return self.Run(ctx, cfg)
}

// Run executes one scheduler invocation end to end and returns the
// process exit code: 0 success, 1 load/DAG/config error, 2 execution
// failure (at least one Task failed), 130 cancelled.
func (self *App) Run(ctx context.Context, cfg *config.Config) int {
	cache := db.NewDevCache(cfg.CacheDir, cfg.CacheDuration)
	if cfg.ClearCache {
		if err := cache.Clear(); err != nil {
			self.Error("clearing cache: %s", err)
			return 1
		}
		self.Notice("cache cleared")
		return 0
	}

	tasks, err := suite.Load(suite.Dirs{DDLDir: cfg.DDLDir, InsertDir: cfg.InsertDir})
	if err != nil {
		self.Error("loading suite: %s", err)
		return 1
	}
	self.Notice("loaded %d task(s)", len(tasks))

	g, err := graph.Build(tasks)
	if err != nil {
		self.Error("building dependency graph: %s", err)
		return 1
	}

	execSet := g.ExecutionSet(cfg.Targets, cfg.Exclusions, cfg.Dependencies)
	self.Notice("%d task(s) in scope", len(execSet))

	if cfg.Dev {
		suite.RewriteForDevStage(tasks, execSet, cfg.DevSchema)
	}

	var pool *db.Pool
	if !cfg.Check {
		pool, err = db.Connect(ctx, cfg.DSN)
		if err != nil {
			self.Error("connecting to database: %s", err)
			return 1
		}
		defer pool.Close()
	}

	sched := &execpkg.Scheduler{
		Pool:   pool,
		Cache:  cache,
		Logger: self.asLogger(),
		Options: execpkg.Options{
			Concurrency: cfg.Concurrency,
			Dev:         cfg.Dev,
			DevSchema:   cfg.DevSchema,
			NoCache:     cfg.NoCache,
			CheckOnly:   cfg.Check,
			Refill:      cfg.Refill,
			Start:       cfg.Start,
			End:         cfg.End,
		},
	}

	runErr := sched.Run(ctx, g, execSet)
	self.reportOutcome(tasks, execSet, cfg.SimpleOutput)

	switch {
	case errors.Is(runErr, context.Canceled):
		return 130
	case runErr != nil:
		return 2
	default:
		return 0
	}
}

// reportOutcome prints one line per in-scope task, in ID order, with its
// final state. --simple-output drops everything but id and state, for
// scripting.
func (self *App) reportOutcome(tasks map[task.ID]*task.Task, execSet map[task.ID]bool, simple bool) {
	ids := util.MapKeys(execSet)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		t := tasks[id]
		if simple {
			self.Info("%s\t%s", id, t.State)
			continue
		}
		if t.Cause != "" {
			cause := strings.TrimSpace(util.PrefixLines(t.Cause, "    "))
			self.Info("%-40s %-10s (%s)", id, t.State, cause)
		} else {
			self.Info("%-40s %-10s", id, t.State)
		}
	}
}
