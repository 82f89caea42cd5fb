// Package dbutil adapts the '?' placeholder SQL written across the repo to
// the PostgreSQL driver.
package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Rebind rewrites '?' placeholders into $1, $2, ... for lib/pq.
func Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}
