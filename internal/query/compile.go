package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultColumn is the page column keywords are matched against unless overridden.
const DefaultColumn = "content"

// PageSeparator joins page numbers in a result's page list.
const PageSeparator = ", "

// ErrUnknownColumn is returned for a target column outside the allowlist.
var ErrUnknownColumn = errors.New("unknown column")

// columns maps accepted column names to columns of the pages table. Column
// names cannot be bound as parameters, so only these identifiers ever reach the SQL text.
var columns = map[string]string{
	"content":     "content",
	"text":        "content",
	"id":          "document_id",
	"document_id": "document_id",
	"page":        "page_number",
	"page_number": "page_number",
}

// Columns returns the accepted column names in sorted order.
func Columns() []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Statement is a compiled query ready for the store.
type Statement struct {
	// SQL selects (title, author, id, pages, path), one row per matching document.
	SQL  string
	Args []any
	// Predicate is a human-readable rendering of the page filter with literals inlined.
	// It is for display only and is never executed.
	Predicate string
}

// Compiler renders expressions against one target column.
type Compiler struct {
	column string
}

// NewCompiler returns a compiler matching keywords against column. An empty
// column selects DefaultColumn.
func NewCompiler(column string) (*Compiler, error) {
	if column == "" {
		column = DefaultColumn
	}
	col, ok := columns[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownColumn, column, strings.Join(Columns(), ", "))
	}
	return &Compiler{column: col}, nil
}

// Column returns the resolved pages column.
func (c *Compiler) Column() string {
	return c.column
}

// Compile renders expr and ids into a statement. Matching happens per page; pages
// are then grouped by document with their numbers concatenated in ascending order,
// and joined with document metadata. Documents without a matching page do not appear.
func (c *Compiler) Compile(expr Expr, ids IDFilter) *Statement {
	if len(ids) == 0 {
		ids = IDFilter{MatchAll}
	}
	var (
		args      []any
		idSQL     = make([]string, 0, len(ids))
		idDisplay = make([]string, 0, len(ids))
	)
	for _, p := range ids {
		idSQL = append(idSQL, "document_id LIKE ?")
		idDisplay = append(idDisplay, "document_id LIKE "+quote(p))
		args = append(args, p)
	}

	groupSQL := make([]string, 0, len(expr.Groups))
	groupDisplay := make([]string, 0, len(expr.Groups))
	for _, g := range expr.Groups {
		if len(g) == 0 {
			g = Group{""}
		}
		terms := make([]string, 0, len(g))
		display := make([]string, 0, len(g))
		for _, kw := range g {
			pattern := "%" + escapeLike(kw) + "%"
			terms = append(terms, c.column+` LIKE ? ESCAPE '\'`)
			display = append(display, c.column+" LIKE "+quote(pattern))
			args = append(args, pattern)
		}
		groupSQL = append(groupSQL, "("+strings.Join(terms, " AND ")+")")
		groupDisplay = append(groupDisplay, "("+strings.Join(display, " AND ")+")")
	}
	if len(groupSQL) == 0 {
		groupSQL = append(groupSQL, "1")
		groupDisplay = append(groupDisplay, "TRUE")
	}

	where := "(" + strings.Join(idSQL, " OR ") + ")\n\t\tAND (" + strings.Join(groupSQL, "\n\t\tOR ") + ")"
	// ORDER BY inside an aggregate needs SQLite 3.44 or later; both bundled drivers qualify.
	sql := `SELECT d.title, d.author, m.document_id, m.pages, d.path
FROM (
	SELECT document_id, GROUP_CONCAT(page_number, '` + PageSeparator + `' ORDER BY page_number) AS pages
	FROM pages
	WHERE ` + where + `
	GROUP BY document_id
) AS m
INNER JOIN documents AS d ON d.id = m.document_id
ORDER BY m.document_id`

	return &Statement{
		SQL:       sql,
		Args:      args,
		Predicate: "(" + strings.Join(idDisplay, " OR ") + ")\nAND (" + strings.Join(groupDisplay, "\nOR ") + ")",
	}
}

// Compile parses keywords and ids and compiles them against column.
func Compile(keywords, column, ids string) (*Statement, error) {
	c, err := NewCompiler(column)
	if err != nil {
		return nil, err
	}
	return c.Compile(Parse(keywords), ParseIDFilter(ids)), nil
}

// escapeLike makes kw a literal inside a LIKE pattern using backslash as the escape character.
func escapeLike(kw string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(kw)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
