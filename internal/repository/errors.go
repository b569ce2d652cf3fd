// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios. For
// example, ErrActiveSession indicates that a table already has an open
// session, while ErrConflict signals that a write collided with a unique
// key or with dependent records (e.g. deleting the last category of a
// store that still has menus).
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Not-found sentinels, one per entity.
var (
	ErrTableNotFound    = errors.New("table not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrMenuNotFound     = errors.New("menu not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrStoreNotFound    = errors.New("store not found")
)

// ErrSessionEnded is returned when a write targets a session whose
// ended_at is already set.
var ErrSessionEnded = errors.New("session already ended")

// ErrActiveSession is returned when a table already has a session with
// ended_at NULL, either found under the row lock or reported by the
// unique key on table_sessions.active_table_id.
var ErrActiveSession = errors.New("table has an active session")

// ErrConflict is returned when a create or update collides with a unique
// key, or a delete cannot be performed because of conflicting state.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
