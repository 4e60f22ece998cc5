package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

// Config is the validated, immutable form of Args the rest of the program
// consumes. Building it is the only place DSN passwords get prompted for
// and the CLI's schema.table strings get parsed.
type Config struct {
	DDLDir    string
	InsertDir string

	DSN string

	Dev       bool
	DevSchema string

	Targets      []task.ID
	Exclusions   []task.ID
	Dependencies bool

	Check       bool
	Concurrency int

	NoCache       bool
	ClearCache    bool
	CacheDir      string
	CacheDuration time.Duration

	Refill bool
	Start  util.Opt[time.Time]
	End    time.Time

	SimpleOutput bool
}

// Build validates args and resolves it into a Config, prompting on the
// terminal for a DSN password if one is needed and wasn't supplied.
func Build(args Args) (*Config, error) {
	if args.Dev && args.Prod {
		return nil, fmt.Errorf("--dev and --prod are mutually exclusive")
	}
	if !util.IsDir(args.InsertDir) {
		return nil, fmt.Errorf("--insert-dir %q is not a directory", args.InsertDir)
	}

	dev := args.Dev
	if !args.Dev && !args.Prod {
		switch args.Stage {
		case "dev":
			dev = true
		case "", "prod":
			dev = false
		default:
			return nil, fmt.Errorf("--stage %q must be \"prod\" or \"dev\"", args.Stage)
		}
	}
	if dev && args.DevSchema == "" {
		return nil, fmt.Errorf("--dev-schema is required in the dev stage")
	}

	targets, err := parseIDs(args.Targets)
	if err != nil {
		return nil, err
	}
	exclusions, err := parseIDs(args.Exclusions)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if util.Contains(exclusions, t) {
			return nil, fmt.Errorf("%s is both a --target and an --exclusion", t)
		}
	}

	dsn, err := resolveDSN(args)
	if err != nil {
		return nil, err
	}

	start := util.None[time.Time]()
	if args.Start != "" {
		parsed, err := time.Parse(time.RFC3339, args.Start)
		if err != nil {
			return nil, errors.Wrap(err, "--start")
		}
		start = util.Some(parsed)
	}

	end := time.Now()
	if args.End != "" {
		end, err = time.Parse(time.RFC3339, args.End)
		if err != nil {
			return nil, errors.Wrap(err, "--end")
		}
	}

	if args.Refill {
		start = util.None[time.Time]()
	}

	return &Config{
		DDLDir:        args.DDLDir,
		InsertDir:     args.InsertDir,
		DSN:           dsn,
		Dev:           dev,
		DevSchema:     args.DevSchema,
		Targets:       targets,
		Exclusions:    exclusions,
		Dependencies:  args.Dependencies,
		Check:         args.Check,
		Concurrency:   args.Concurrency,
		NoCache:       args.NoCache,
		ClearCache:    args.ClearCache,
		CacheDir:      args.CacheDir,
		CacheDuration: args.CacheDuration,
		Refill:        args.Refill,
		Start:         start,
		End:           end,
		SimpleOutput:  args.SimpleOutput,
	}, nil
}

func parseIDs(raw []string) ([]task.ID, error) {
	out := make([]task.ID, 0, len(raw))
	for _, s := range raw {
		id, ok := task.ParseID(s)
		if !ok {
			return nil, fmt.Errorf("%q is not a valid schema.table reference", s)
		}
		out = append(out, id)
	}
	return out, nil
}

// resolveDSN appends " password=..." to a key=value args.DSN that has no
// "password=": first from --db-password/$SQL_SCHEDULER_PASSWORD, then by
// prompting on the terminal. A URL-form DSN containing "://" and "@" is
// returned as given, whether or not it carries a password.
func resolveDSN(args Args) (string, error) {
	if args.DSN == "" || strings.Contains(args.DSN, "password=") || strings.Contains(args.DSN, "://") && strings.Contains(args.DSN, ":") && strings.Contains(args.DSN, "@") {
		return args.DSN, nil
	}

	pass := ""
	if args.DBPass != nil {
		pass = *args.DBPass
	} else {
		p, err := util.PromptPassword("Database password: ")
		if err != nil {
			return "", errors.Wrap(err, "reading password")
		}
		pass = p
	}
	return args.DSN + fmt.Sprintf(" password=%s", pass), nil
}
