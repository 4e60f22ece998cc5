package exec

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscheduler/sqlscheduler/lib/db"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

var own = task.ID{Schema: "sales", Table: "orders"}

func TestRunAssertion_GranularityPassesWhenNoDupes(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	err := RunAssertion(context.Background(), pool, own, task.Granularity{Columns: []string{"id"}})
	assert.NoError(t, err)
}

func TestRunAssertion_GranularityFailsWhenDupesFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(3), nil)

	err := RunAssertion(context.Background(), pool, own, task.Granularity{Columns: []string{"id"}})
	require.Error(t, err)
	var failure *TestFailure
	require.ErrorAs(t, err, &failure)
}

func TestRunAssertion_NotNullQueriesOncePerColumn(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)

	err := RunAssertion(context.Background(), pool, own, task.NotNull{Columns: []string{"id", "customer_id"}})
	assert.NoError(t, err)
}

func TestRunAssertion_NotNullFailsOnFirstNullColumn(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	err := RunAssertion(context.Background(), pool, own, task.NotNull{Columns: []string{"id"}})
	assert.Error(t, err)
}

func TestRunAssertion_RelationshipFailsOnDanglingReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(5), nil)

	d := task.Relationship{
		LocalColumn: "customer_id",
		Foreign:     task.ColumnRef{Schema: "sales", Table: "customers", Column: "id"},
	}
	err := RunAssertion(context.Background(), pool, own, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5 row(s)")
}

func TestRunAssertion_UpstreamCountFailsWhenAtOrBelowMinimum(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	d := task.UpstreamCount{Target: task.ID{Schema: "sales", Table: "raw_orders"}, Minimum: 1}
	err := RunAssertion(context.Background(), pool, own, d)
	assert.Error(t, err)
}

func TestRunAssertion_UpstreamGranularityDelegatesToGranularityCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	d := task.UpstreamGranularity{Target: task.ID{Schema: "sales", Table: "raw_orders"}, Columns: []string{"id"}}
	err := RunAssertion(context.Background(), pool, own, d)
	assert.NoError(t, err)
}

func TestRunAssertion_PropagatesQueryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool := db.NewMockQuerier(ctrl)
	wantErr := context.DeadlineExceeded
	pool.EXPECT().QueryInt64(gomock.Any(), gomock.Any()).Return(int64(0), wantErr)

	err := RunAssertion(context.Background(), pool, own, task.NotNull{Columns: []string{"id"}})
	assert.ErrorIs(t, err, wantErr)
}
