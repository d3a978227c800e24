// Package table provides a SQLite-backed store of tabular analysis results.
// Each imported table keeps its column headers in a catalog and its rows in a
// dedicated SQL table with one typed column per header.
package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrTableNotFound is returned for an unknown table id.
	ErrTableNotFound = errors.New("table not found")
	// ErrColumnNotFound is returned when a requested column is not in the table.
	ErrColumnNotFound = errors.New("column not found")
)

// ColumnType names the type of a column.
type ColumnType string

const (
	LongColumn   ColumnType = "LongColumn"
	DoubleColumn ColumnType = "DoubleColumn"
	StringColumn ColumnType = "StringColumn"
	ImageColumn  ColumnType = "ImageColumn"
	RoiColumn    ColumnType = "RoiColumn"
	WellColumn   ColumnType = "WellColumn"
)

func (t ColumnType) sqlType() string {
	switch t {
	case LongColumn, ImageColumn, RoiColumn, WellColumn:
		return "INTEGER"
	case DoubleColumn:
		return "REAL"
	}
	return "TEXT"
}

// IsID reports whether the column holds object ids.
func (t ColumnType) IsID() bool {
	return t == ImageColumn || t == RoiColumn || t == WellColumn
}

// Column is one table header.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Info summarizes a stored table.
type Info struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides persistent storage for tables using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a new SQLite-based table store.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tables (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS table_columns (
		table_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (table_id, position),
		FOREIGN KEY (table_id) REFERENCES tables(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func rowTable(id int64) string {
	return fmt.Sprintf("table_rows_%d", id)
}

func columnIdent(pos int) string {
	return fmt.Sprintf("c%d", pos)
}

// Create stores a table with the given headers and rows. Row values must be
// nil or match the column type: int64 for id and long columns, float64 for
// double columns and string for string columns.
func (s *Store) Create(ctx context.Context, name string, cols []Column, rows [][]any) (int64, error) {
	if len(cols) == 0 {
		return 0, errors.New("table has no columns")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO tables (name, row_count, created_at) VALUES (?, ?, ?)`,
		name, len(rows), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert table: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	defs := make([]string, len(cols))
	idents := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO table_columns (table_id, position, name, type) VALUES (?, ?, ?, ?)`,
			id, i, col.Name, string(col.Type)); err != nil {
			return 0, fmt.Errorf("failed to insert column %q: %w", col.Name, err)
		}
		defs[i] = columnIdent(i) + " " + col.Type.sqlType()
		idents[i] = columnIdent(i)
		marks[i] = "?"
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (row_num INTEGER PRIMARY KEY, %s)", rowTable(id), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("failed to create row table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (row_num, %s) VALUES (?, %s)",
		rowTable(id), strings.Join(idents, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols)+1)
	for r, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(cols))
		}
		args[0] = r
		copy(args[1:], row)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit table: %w", err)
	}
	return id, nil
}

// Info returns the summary of a table.
func (s *Store) Info(ctx context.Context, id int64) (*Info, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, row_count, created_at FROM tables WHERE id = ?`, id)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrTableNotFound, id)
	}
	return info, err
}

// List returns all stored tables, newest first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, row_count, created_at FROM tables ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(sc scanner) (*Info, error) {
	var info Info
	var created string
	if err := sc.Scan(&info.ID, &info.Name, &info.Rows, &created); err != nil {
		return nil, err
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &info, nil
}

// Headers returns the columns of a table in stored order.
func (s *Store) Headers(ctx context.Context, id int64) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type FROM table_columns WHERE table_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var typ string
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, err
		}
		c.Type = ColumnType(typ)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrTableNotFound, id)
	}
	return cols, nil
}

// Slice returns up to limit rows with every column, in row order.
func (s *Store) Slice(ctx context.Context, id int64, limit int) ([][]any, error) {
	cols, err := s.Headers(ctx, id)
	if err != nil {
		return nil, err
	}
	positions := make([]int, len(cols))
	for i := range cols {
		positions[i] = i
	}
	return s.selectRows(ctx, id, positions, limit)
}

// Columns returns all rows restricted to the named columns, in the order the
// names are given.
func (s *Store) Columns(ctx context.Context, id int64, names ...string) ([][]any, error) {
	cols, err := s.Headers(ctx, id)
	if err != nil {
		return nil, err
	}
	positions := make([]int, len(names))
	for i, name := range names {
		pos := ColumnIndex(cols, name)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %q in table %d", ErrColumnNotFound, name, id)
		}
		positions[i] = pos
	}
	return s.selectRows(ctx, id, positions, -1)
}

// ColumnIndex returns the position of the named column, or -1.
func ColumnIndex(cols []Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *Store) selectRows(ctx context.Context, id int64, positions []int, limit int) ([][]any, error) {
	if len(positions) == 0 {
		return nil, errors.New("no columns selected")
	}
	idents := make([]string, len(positions))
	for i, p := range positions {
		idents[i] = columnIdent(p)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY row_num LIMIT ?", strings.Join(idents, ", "), rowTable(id))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %d: %w", id, err)
	}
	defer rows.Close()

	out := [][]any{}
	for rows.Next() {
		vals := make([]any, len(positions))
		ptrs := make([]any, len(positions))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}
