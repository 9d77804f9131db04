package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// QueryParams selects and pages the rows of one table.
type QueryParams struct {
	// Where is an SQL condition without the WHERE keyword, such as
	// "Component = ? AND Time > ?".
	Where string
	Args  []any

	// OrderBy is an SQL ordering without the ORDER BY keywords.
	OrderBy string

	// Limit of 0 returns every row. Offset only applies with a limit.
	Limit  int
	Offset int
}

func (p QueryParams) where() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) selectQuery(table string) string {
	var b strings.Builder

	b.WriteString("SELECT * FROM " + table + p.where())

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads back the tables a DataRecorder wrote. Rows are returned
// as pointers to the struct type mapped to the table.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table fill.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables in name order.
	ListTables() []string

	// Query returns the selected rows and the number of rows matching the
	// condition regardless of paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db    *sql.DB
	types map[string]reflect.Type
}

// NewReader opens a recording database file.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a DataReader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{db: db, types: make(map[string]reflect.Type)}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.types[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.types))
	for t := range r.types {
		tables = append(tables, t)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, mapped := r.types[tableName]
	if !mapped {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.where(),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting rows of %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		params.selectQuery(tableName), params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := scanRows(rows, rowType)
	if err != nil {
		return nil, 0, fmt.Errorf("reading rows of %s: %w", tableName, err)
	}

	return results, total, nil
}

// scanRows fills one struct per row, matching columns to field names.
// Columns without a field are dropped.
func scanRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		row := reflect.New(rowType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			if field := row.Elem().FieldByName(col); field.IsValid() {
				targets[i] = field.Addr().Interface()
				continue
			}

			var discard any
			targets[i] = &discard
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, row.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
