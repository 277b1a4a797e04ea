package database

import (
	"fmt"
	"strings"
	"time"
)

// activeFilter builds the WHERE clause of an active-row listing. It always
// starts from valid_until IS NULL; optional equality filters are appended
// only when set.
type activeFilter struct {
	clauses []string
	args    []any
}

func newActiveFilter() *activeFilter {
	return &activeFilter{clauses: []string{"valid_until IS NULL"}}
}

// eq adds "field = value" when value is non-nil.
func (f *activeFilter) eq(field string, value *string) *activeFilter {
	if value != nil {
		f.clauses = append(f.clauses, fmt.Sprintf("%s = ?", field))
		f.args = append(f.args, *value)
	}
	return f
}

// since adds "field >= value" when value is non-nil.
func (f *activeFilter) since(field string, value *time.Time) *activeFilter {
	if value != nil {
		f.clauses = append(f.clauses, fmt.Sprintf("%s >= ?", field))
		f.args = append(f.args, value.UTC())
	}
	return f
}

// before adds "field < value" when value is non-nil.
func (f *activeFilter) before(field string, value *time.Time) *activeFilter {
	if value != nil {
		f.clauses = append(f.clauses, fmt.Sprintf("%s < ?", field))
		f.args = append(f.args, value.UTC())
	}
	return f
}

// query renders the full SELECT with the given ordering columns, ascending.
func (f *activeFilter) query(columns, table string, orderBy ...string) string {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columns, table, strings.Join(f.clauses, " AND "))
	if len(orderBy) > 0 {
		q += " ORDER BY " + strings.Join(orderBy, " ASC, ") + " ASC"
	}
	return q
}
