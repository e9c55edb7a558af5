// Package sqlxrepos implements the user, track & enrollment repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err violates the given unique constraint (any constraint if empty).
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// orderBy builds an ORDER BY clause from the orderings on allowed columns only.
func orderBy(ordering []core.DBOrdering, fallback string, allowed ...string) string {
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if strmangle.SetInclude(ord.Field, allowed) {
			valid = append(valid, ord)
		}
	}
	return core.OrderByClause(valid, fallback)
}

// where accumulates AND-ed conditions with "?" bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
