package task

import (
	"fmt"
	"strings"
)

// ID is a table identity: the (schema, table) pair. Comparison is
// case-sensitive, matching spec: identifiers carry whatever case the suite's
// filenames and SQL text actually use.
type ID struct {
	Schema string
	Table  string
}

func NewID(schema, table string) ID {
	return ID{Schema: schema, Table: table}
}

// ParseID splits a "schema.table" string. Returns false if it isn't
// exactly two dot-separated parts.
func ParseID(s string) (ID, bool) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], ".") {
		return ID{}, false
	}
	return ID{Schema: parts[0], Table: parts[1]}, true
}

func (id ID) String() string {
	return fmt.Sprintf("%s.%s", id.Schema, id.Table)
}

func (id ID) IsZero() bool {
	return id.Schema == "" && id.Table == ""
}
