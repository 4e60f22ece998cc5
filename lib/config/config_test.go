package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
	"github.com/sqlscheduler/sqlscheduler/lib/util"
)

func baseArgs(t *testing.T) Args {
	t.Helper()
	return Args{
		InsertDir:   t.TempDir(),
		DSN:         "host=localhost dbname=x password=secret",
		DevSchema:   "dev_suite",
		Concurrency: 4,
	}
}

func TestBuild_DevAndProdAreMutuallyExclusive(t *testing.T) {
	args := baseArgs(t)
	args.Dev = true
	args.Prod = true
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_DevRequiresDevSchema(t *testing.T) {
	args := baseArgs(t)
	args.Dev = true
	args.DevSchema = ""
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_StageDevFallsBackWhenNeitherFlagGiven(t *testing.T) {
	args := baseArgs(t)
	args.Stage = "dev"
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.True(t, cfg.Dev)
}

func TestBuild_ExplicitProdFlagWinsOverStageDev(t *testing.T) {
	args := baseArgs(t)
	args.Prod = true
	args.Stage = "dev"
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.False(t, cfg.Dev)
}

func TestBuild_RejectsUnknownStage(t *testing.T) {
	args := baseArgs(t)
	args.Stage = "staging"
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_InsertDirMustExist(t *testing.T) {
	args := baseArgs(t)
	args.InsertDir = "/no/such/directory"
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_TargetCannotAlsoBeExcluded(t *testing.T) {
	args := baseArgs(t)
	args.Targets = []string{"sales.orders"}
	args.Exclusions = []string{"sales.orders"}
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_ParsesTargetsAndExclusions(t *testing.T) {
	args := baseArgs(t)
	args.Targets = []string{"sales.orders", "sales.customers"}
	args.Exclusions = []string{"sales.returns"}
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.ElementsMatch(t, []task.ID{{Schema: "sales", Table: "orders"}, {Schema: "sales", Table: "customers"}}, cfg.Targets)
	assert.Equal(t, []task.ID{{Schema: "sales", Table: "returns"}}, cfg.Exclusions)
}

func TestBuild_RejectsMalformedTarget(t *testing.T) {
	args := baseArgs(t)
	args.Targets = []string{"not-a-qualified-name"}
	_, err := Build(args)
	assert.Error(t, err)
}

func TestBuild_StartAbsentWithoutFlag(t *testing.T) {
	args := baseArgs(t)
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.False(t, cfg.Start.HasValue())
}

func TestBuild_StartParsedWhenGiven(t *testing.T) {
	args := baseArgs(t)
	args.Start = "2026-01-01T00:00:00Z"
	cfg, err := Build(args)
	require.NoError(t, err)
	require.True(t, cfg.Start.HasValue())
	assert.Equal(t, 2026, cfg.Start.Get().Year())
}

func TestBuild_RefillForcesStartAbsentEvenIfGiven(t *testing.T) {
	args := baseArgs(t)
	args.Start = "2026-01-01T00:00:00Z"
	args.Refill = true
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.False(t, cfg.Start.HasValue())
}

func TestBuild_EndDefaultsToNow(t *testing.T) {
	args := baseArgs(t)
	before := time.Now()
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.True(t, !cfg.End.Before(before))
}

func TestBuild_DSNWithPasswordMarkerIsUsedVerbatim(t *testing.T) {
	args := baseArgs(t)
	args.DSN = "postgres://user:pw@host:5432/db"
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.Equal(t, args.DSN, cfg.DSN)
}

func TestBuild_AppendsDBPasswordWhenDSNHasNone(t *testing.T) {
	args := baseArgs(t)
	args.DSN = "host=localhost dbname=x"
	args.DBPass = util.Ptr("hunter2")
	cfg, err := Build(args)
	require.NoError(t, err)
	assert.Contains(t, cfg.DSN, "password=hunter2")
}
