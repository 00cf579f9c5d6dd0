package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// mysqlNoSuchTable is MySQL's ER_NO_SUCH_TABLE.
const mysqlNoSuchTable = 1146

// IsMissingTable reports whether err means the queried table has not been
// created yet, for any of the supported drivers.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == undefinedTable
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable
	}

	// modernc.org/sqlite only exposes a generic error code for this case.
	return strings.Contains(err.Error(), "no such table")
}
