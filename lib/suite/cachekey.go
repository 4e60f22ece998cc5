package suite

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sqlscheduler/sqlscheduler/lib/sqlparse"
	"github.com/sqlscheduler/sqlscheduler/lib/task"
)

// RewriteForDevStage applies the dev-schema rewrite to every Task in tasks
// whose ID is a member of rewriteSet, and stamps each affected Task's
// CacheKey with the sha256 of its rewritten DDL+INSERT text. Tasks outside
// rewriteSet are left untouched and keep an empty CacheKey, since the
// dev-stage cache only ever covers the tables actually in scope for a run.
func RewriteForDevStage(tasks map[task.ID]*task.Task, rewriteSet map[task.ID]bool, devSchema string) {
	for id, t := range tasks {
		if !rewriteSet[id] {
			continue
		}
		t.DDLSQL = sqlparse.Rewrite(t.DDLSQL, rewriteSet, devSchema)
		t.InsertSQL = sqlparse.Rewrite(t.InsertSQL, rewriteSet, devSchema)
		t.CacheKey = cacheKey(t.DDLSQL, t.InsertSQL)
	}
}

func cacheKey(ddl, insert string) string {
	h := sha256.New()
	h.Write([]byte(ddl))
	h.Write([]byte("\x00"))
	h.Write([]byte(insert))
	return hex.EncodeToString(h.Sum(nil))
}
