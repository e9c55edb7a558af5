package core

import (
	"strings"

	"github.com/volatiletech/strmangle"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseDBOrderings parses a comma separated ordering param (eg. "-createdAt,name") into snake_case column orderings.
// Fields not found in allowed (snake_case column names) are ignored.
func ParseDBOrderings(param string, allowed ...string) []DBOrdering {
	if param == "" {
		return nil
	}
	var orderings []DBOrdering
	for _, field := range strings.Split(param, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		field = strmangle.SnakeCase(field)
		if field == "" || (len(allowed) > 0 && !strmangle.SetInclude(field, allowed)) {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause joins orderings into an SQL ORDER BY clause, or returns fallback when there is none.
func OrderByClause(orderings []DBOrdering, fallback string) string {
	if len(orderings) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
