// Package postgres implements the domain repositories on PostgreSQL
// via sqlx. Constraint violations are translated into domain errors so
// services never see raw SQLSTATE codes.
package postgres

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/mwanzohq/mwanzo/core"
)

// SQLSTATE classes of interest.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
)

func pqCode(err error) pq.ErrorCode {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool     { return pqCode(err) == codeUniqueViolation }
func isForeignKeyViolation(err error) bool { return pqCode(err) == codeForeignKeyViolation }
func isExclusionViolation(err error) bool  { return pqCode(err) == codeExclusionViolation }

func isNoRows(err error) bool { return err == sql.ErrNoRows }

func pqStringArray(s []string) pq.StringArray { return pq.StringArray(s) }

func pqIntArray(s []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(s))
	for i, v := range s {
		arr[i] = int64(v)
	}
	return arr
}

// orderBy renders an ORDER BY clause from ordering, falling back to def.
// Fields come from a fixed set chosen by handlers, never raw user input.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		if def == "" {
			return ""
		}
		return " ORDER BY " + def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
