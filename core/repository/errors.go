package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrActivityUnsupported is returned when the connected database does not
// expose pg_stat_activity, e.g. a file-based copy of the tasker database.
var ErrActivityUnsupported = errors.New("database activity view not available")

// isUndefinedRelation reports whether err means a table or view is missing.
// Postgres signals this with SQLSTATE 42P01; other engines only give us
// message text.
func isUndefinedRelation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such view")
}
