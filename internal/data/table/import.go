package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// idColumns maps header names of object id columns to their column type.
var idColumns = map[string]ColumnType{
	"image": ImageColumn,
	"roi":   RoiColumn,
	"well":  WellColumn,
}

// Import reads a CSV document with a header row and stores it as a new
// table. Column types are inferred: Image, Roi and Well headers are id
// columns, columns whose non-empty cells all parse as integers are long
// columns, then double columns, and everything else is a string column.
// Empty cells are stored as NULL.
func (s *Store) Import(ctx context.Context, name string, r io.Reader) (int64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("csv has no header row")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv: %w", err)
	}

	cols := make([]Column, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return 0, fmt.Errorf("column %d has an empty header", i)
		}
		if seen[h] {
			return 0, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
		cols[i] = Column{Name: h, Type: inferType(h, records, i)}
	}

	rows := make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(cols))
		for i, col := range cols {
			v, err := parseCell(col.Type, rec[i])
			if err != nil {
				return 0, fmt.Errorf("row %d column %q: %w", r+1, col.Name, err)
			}
			row[i] = v
		}
		rows[r] = row
	}

	return s.Create(ctx, name, cols, rows)
}

func inferType(header string, records [][]string, i int) ColumnType {
	if t, ok := idColumns[strings.ToLower(header)]; ok {
		return t
	}

	isInt, isFloat, nonEmpty := true, true, false
	for _, rec := range records {
		cell := strings.TrimSpace(rec[i])
		if cell == "" {
			continue
		}
		nonEmpty = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
				break
			}
		}
	}

	switch {
	case !nonEmpty:
		return StringColumn
	case isInt:
		return LongColumn
	case isFloat:
		return DoubleColumn
	}
	return StringColumn
}

func parseCell(t ColumnType, cell string) (any, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	switch t {
	case LongColumn, ImageColumn, RoiColumn, WellColumn:
		return strconv.ParseInt(cell, 10, 64)
	case DoubleColumn:
		return strconv.ParseFloat(cell, 64)
	}
	return cell, nil
}
