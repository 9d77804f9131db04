// Package datarecording stores the history of a line run in an SQLite
// database.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/smtline/smtline/sim"
)

// A DataRecorder writes flat structs as table rows. Rows are buffered and
// written in batches.
type DataRecorder interface {
	// CreateTable creates a table with one column per field of sampleEntry.
	// Fields must be booleans, numbers or strings.
	CreateTable(tableName string, sampleEntry any)

	// InsertData queues a row. The table must exist.
	InsertData(tableName string, entry any)

	// ListTables returns the created tables in creation order.
	ListTables() []string

	// Flush writes the queued rows in one transaction.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

const defaultBatchSize = 100000

// New creates a DataRecorder that writes into path.sqlite3. An empty path
// picks a unique name. An existing file is never overwritten. Queued rows are
// flushed when the program exits through atexit.
func New(path string) DataRecorder {
	if path == "" {
		path = sim.NewUniqueIDGenerator("smtline_recording_").Generate()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	logrus.WithField("file", filename).Info("recording the line")

	return NewWithDB(db)
}

// NewWithDB creates a DataRecorder on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	r := &sqliteRecorder{
		db:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*recordedTable),
	}

	atexit.Register(r.Flush)

	return r
}

type column struct {
	name    string
	sqlType string
}

type recordedTable struct {
	name    string
	columns []column
	pending []any
}

type sqliteRecorder struct {
	db        *sql.DB
	tables    map[string]*recordedTable
	order     []string
	pending   int
	batchSize int
}

func sqlType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

func columnsOf(entry any) []column {
	typ := reflect.TypeOf(entry)
	if typ == nil || typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("cannot record %T, entries must be structs", entry))
	}

	columns := make([]column, typ.NumField())

	for i := range columns {
		field := typ.Field(i)

		t, ok := sqlType(field.Type.Kind())
		if !field.IsExported() || !ok {
			panic(fmt.Sprintf("field %s of %s cannot be recorded",
				field.Name, typ.Name()))
		}

		columns[i] = column{name: field.Name, sqlType: t}
	}

	return columns
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	columns := columnsOf(sampleEntry)

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = c.name + " " + c.sqlType
	}

	r.mustExec(fmt.Sprintf("CREATE TABLE %s (%s)",
		tableName, strings.Join(defs, ", ")))

	r.tables[tableName] = &recordedTable{name: tableName, columns: columns}
	r.order = append(r.order, tableName)
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) {
	t, found := r.tables[tableName]
	if !found {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.pending = append(t.pending, entry)
	r.pending++

	if r.pending >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) ListTables() []string {
	return append([]string(nil), r.order...)
}

func (r *sqliteRecorder) Flush() {
	if r.pending == 0 {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range r.order {
		if err := r.flushTable(tx, r.tables[name]); err != nil {
			_ = tx.Rollback()
			panic(err)
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	r.pending = 0
}

func (r *sqliteRecorder) flushTable(tx *sql.Tx, t *recordedTable) error {
	if len(t.pending) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", len(t.columns)), ", ")

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		t.name, placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", t.name, err)
	}
	defer stmt.Close()

	values := make([]any, len(t.columns))

	for _, entry := range t.pending {
		v := reflect.ValueOf(entry)
		for i := range values {
			values[i] = v.Field(i).Interface()
		}

		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("inserting into %s: %w", t.name, err)
		}
	}

	t.pending = nil

	return nil
}

func (r *sqliteRecorder) Close() error {
	r.Flush()
	return r.db.Close()
}

func (r *sqliteRecorder) mustExec(query string) {
	if _, err := r.db.Exec(query); err != nil {
		logrus.WithField("query", query).WithError(err).Error("recording failed")
		panic(err)
	}
}
