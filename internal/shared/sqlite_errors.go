// Package shared provides helpers used by more than one package.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteCode returns the extended result code carried by err, or 0 when
// err did not come from the driver.
func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// primary strips the extended bits off a result code.
func primary(code int) int {
	return code & 0xff
}

// IsSQLiteBusyError reports whether another connection holds the database.
func IsSQLiteBusyError(err error) bool {
	return primary(sqliteCode(err)) == sqlite3.SQLITE_BUSY
}

// IsSQLiteLockedError reports a table lock conflict inside a shared cache.
func IsSQLiteLockedError(err error) bool {
	return primary(sqliteCode(err)) == sqlite3.SQLITE_LOCKED
}

// IsSQLiteConflictError reports errors that go away on retry.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}

// IsSQLiteConstraintError reports a PRIMARY KEY or UNIQUE violation.
func IsSQLiteConstraintError(err error) bool {
	switch sqliteCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
