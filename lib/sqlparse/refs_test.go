package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

func TestExtract_InsertIntoIsWrite(t *testing.T) {
	refs := Extract(Tokenize(`INSERT INTO analytics.events (id) SELECT id FROM staging.raw_events`))
	assert.Equal(t, []task.ID{{Schema: "analytics", Table: "events"}}, refs.Writes)
	assert.True(t, refs.Reads[task.ID{Schema: "staging", Table: "raw_events"}])
}

func TestExtract_JoinIsRead(t *testing.T) {
	refs := Extract(Tokenize(`
		INSERT INTO analytics.daily_totals
		SELECT o.id FROM sales.orders o
		JOIN sales.customers c ON c.id = o.customer_id
	`))
	assert.True(t, refs.Reads[task.ID{Schema: "sales", Table: "orders"}])
	assert.True(t, refs.Reads[task.ID{Schema: "sales", Table: "customers"}])
}

func TestExtract_DeleteFromIsWriteNotRead(t *testing.T) {
	refs := Extract(Tokenize(`DELETE FROM analytics.stale_rows WHERE 1=1`))
	assert.Equal(t, []task.ID{{Schema: "analytics", Table: "stale_rows"}}, refs.Writes)
	assert.Empty(t, refs.Reads)
}

func TestExtract_CreateTableIfNotExistsIsWrite(t *testing.T) {
	refs := Extract(Tokenize(`CREATE TABLE IF NOT EXISTS analytics.events (id bigint)`))
	assert.Equal(t, []task.ID{{Schema: "analytics", Table: "events"}}, refs.Writes)
}

func TestExtract_UnqualifiedIdentifiersAreIgnored(t *testing.T) {
	refs := Extract(Tokenize(`INSERT INTO events (id) SELECT id FROM raw_events`))
	assert.Empty(t, refs.Writes)
	assert.Empty(t, refs.Reads)
}

func TestExtract_QuotedSchemaIsCaseSensitive(t *testing.T) {
	refs := Extract(Tokenize(`SELECT * FROM "Sales".orders`))
	assert.True(t, refs.Reads[task.ID{Schema: "Sales", Table: "orders"}])
	assert.False(t, refs.Reads[task.ID{Schema: "sales", Table: "orders"}])
}
