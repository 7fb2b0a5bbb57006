package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the bind-parameter syntax.
type Dialect int

const (
	// Dollar numbers parameters $1, $2, ... (PostgreSQL).
	Dollar Dialect = iota
	// Question uses positional ? parameters (SQLite).
	Question
)

// stmt is the SQL text and bind arguments of one statement under a dialect.
type stmt struct {
	sb      strings.Builder
	args    []any
	dialect Dialect
}

func (s *stmt) raw(parts ...string) {
	for _, p := range parts {
		s.sb.WriteString(p)
	}
}

func (s *stmt) arg(value any) {
	s.args = append(s.args, value)
	if s.dialect == Question {
		s.sb.WriteByte('?')
		return
	}
	s.sb.WriteByte('$')
	s.sb.WriteString(strconv.Itoa(len(s.args)))
}

func (s *stmt) list(values []any) {
	s.sb.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			s.raw(", ")
		}
		s.arg(v)
	}
	s.sb.WriteByte(')')
}

// Condition renders one predicate of a WHERE clause. Conditions passed to
// Where are joined with AND.
type Condition func(s *stmt)

func (s *stmt) where(conds []Condition) {
	for i, c := range conds {
		if i == 0 {
			s.raw(" WHERE ")
		} else {
			s.raw(" AND ")
		}
		c(s)
	}
}

func Eq(column string, value any) Condition {
	return func(s *stmt) {
		s.raw(column, " = ")
		s.arg(value)
	}
}

// InInt64 matches any of ids; an empty list matches nothing.
func InInt64(column string, ids []int64) Condition {
	return func(s *stmt) {
		if len(ids) == 0 {
			s.raw("1=0")
			return
		}
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = id
		}
		s.raw(column, " IN ")
		s.list(values)
	}
}

// Expr embeds raw SQL; each '?' binds the next argument. Extra '?' beyond
// the arguments are copied through unchanged.
func Expr(sql string, args ...any) Condition {
	return func(s *stmt) {
		rest := sql
		for _, a := range args {
			before, after, found := strings.Cut(rest, "?")
			if !found {
				break
			}
			s.raw(before)
			s.arg(a)
			rest = after
		}
		s.raw(rest)
	}
}

// OnConflictUpdate renders an upsert suffix that overwrites every column but
// key with the incoming row and bumps updated_at. Both postgres and sqlite
// accept the EXCLUDED form.
func OnConflictUpdate(key string, columns ...string) string {
	sets := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		if c == key {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	return "ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

type SelectBuilder struct {
	dialect Dialect
	columns []string
	table   string
	conds   []Condition
	order   []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) Dialect(d Dialect) *SelectBuilder { b.dialect = d; return b }
func (b *SelectBuilder) From(table string) *SelectBuilder { b.table = table; return b }
func (b *SelectBuilder) Limit(n int) *SelectBuilder       { b.limit = n; return b }

func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	b.order = append(b.order, terms...)
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	switch {
	case len(b.columns) == 0:
		return "", nil, errors.New("select: no columns")
	case strings.TrimSpace(b.table) == "":
		return "", nil, errors.New("select: no table")
	}

	s := &stmt{dialect: b.dialect}
	s.raw("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	s.where(b.conds)
	if len(b.order) > 0 {
		s.raw(" ORDER BY ", strings.Join(b.order, ", "))
	}
	if b.limit > 0 {
		s.raw(" LIMIT ", strconv.Itoa(b.limit))
	}
	return s.sb.String(), s.args, nil
}

type InsertBuilder struct {
	dialect Dialect
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Dialect(d Dialect) *InsertBuilder { b.dialect = d; return b }

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

// Values adds a row; a multi-row insert calls it once per row.
func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix is appended verbatim, typically OnConflictUpdate output.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, errors.New("insert: no table")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("insert %s: no columns", b.table)
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert %s: no rows", b.table)
	}

	s := &stmt{dialect: b.dialect, args: make([]any, 0, len(b.rows)*len(b.columns))}
	s.raw("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert %s: row %d has %d values for %d columns", b.table, i, len(row), len(b.columns))
		}
		if i > 0 {
			s.raw(", ")
		}
		s.list(row)
	}
	if b.suffix != "" {
		s.raw(" ", b.suffix)
	}
	return s.sb.String(), s.args, nil
}

type DeleteBuilder struct {
	dialect Dialect
	table   string
	conds   []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Dialect(d Dialect) *DeleteBuilder { b.dialect = d; return b }

func (b *DeleteBuilder) Where(conds ...Condition) *DeleteBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

// ToSQL refuses to build a DELETE that would empty the table.
func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, errors.New("delete: no table")
	}
	if len(b.conds) == 0 {
		return "", nil, fmt.Errorf("delete %s: refusing without a condition", b.table)
	}

	s := &stmt{dialect: b.dialect}
	s.raw("DELETE FROM ", b.table)
	s.where(b.conds)
	return s.sb.String(), s.args, nil
}
