package pgconn

import (
	"strconv"
	"strings"
)

// CommandTag is the opaque textual tag a CommandComplete carries, such
// as "SELECT 3" or "CREATE TABLE".
type CommandTag []byte

func (ct CommandTag) String() string {
	return string(ct)
}

// RowsAffected parses the trailing decimal off the tag. Statements
// without a trailing count (CREATE TABLE, BEGIN, ...) report 0.
func (ct CommandTag) RowsAffected() int64 {
	s := string(ct)
	idx := strings.LastIndexByte(s, ' ')
	if idx == -1 {
		return 0
	}
	n, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (ct CommandTag) leadingVerb() string {
	s := string(ct)
	if idx := strings.IndexByte(s, ' '); idx != -1 {
		return s[:idx]
	}
	return s
}

// Insert reports whether the tag is from an INSERT statement.
func (ct CommandTag) Insert() bool { return ct.leadingVerb() == "INSERT" }

// Update reports whether the tag is from an UPDATE statement.
func (ct CommandTag) Update() bool { return ct.leadingVerb() == "UPDATE" }

// Delete reports whether the tag is from a DELETE statement.
func (ct CommandTag) Delete() bool { return ct.leadingVerb() == "DELETE" }

// Select reports whether the tag is from a SELECT (or equivalent
// row-returning) statement.
func (ct CommandTag) Select() bool { return ct.leadingVerb() == "SELECT" }
