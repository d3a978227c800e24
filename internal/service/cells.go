package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ome-tiles/server/internal/data/table"
)

// ErrInvalidColumn is returned when a column cannot serve as a coordinate.
var ErrInvalidColumn = errors.New("invalid column")

// previewRows is the number of rows shown when a table is opened.
const previewRows = 5

// embeddingName is the mapping name under which cell coordinates are published.
const embeddingName = "UMAP"

// TableService exposes stored tables to the viewer.
type TableService struct {
	store *table.Store
}

// NewTableService creates a new table service.
func NewTableService(store *table.Store) *TableService {
	return &TableService{store: store}
}

// TablePreview lists the columns of a table and its first rows, so a user
// can pick the two coordinate columns.
type TablePreview struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Columns []table.Column `json:"columns"`
	Rows    [][]any        `json:"rows"`
}

// Preview returns the column headers and the first rows of a table.
func (s *TableService) Preview(ctx context.Context, tableID int64) (*TablePreview, error) {
	info, err := s.store.Info(ctx, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.store.Headers(ctx, tableID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Slice(ctx, tableID, previewRows)
	if err != nil {
		return nil, err
	}
	return &TablePreview{ID: info.ID, Name: info.Name, Columns: cols, Rows: rows}, nil
}

// List returns every stored table.
func (s *TableService) List(ctx context.Context) ([]table.Info, error) {
	return s.store.List(ctx)
}

// CellMappings is the cells.json entry of one cell.
type CellMappings struct {
	Mappings map[string][2]any `json:"mappings"`
}

// Cells projects two numeric columns of a table to a Vitessce cells.json
// document. Cells are named cell_1 .. cell_n by row order.
func (s *TableService) Cells(ctx context.Context, tableID int64, col1, col2 string) (map[string]CellMappings, error) {
	cols, err := s.store.Headers(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{col1, col2} {
		i := table.ColumnIndex(cols, name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q in table %d", table.ErrColumnNotFound, name, tableID)
		}
		if t := cols[i].Type; t != table.DoubleColumn && t != table.LongColumn {
			return nil, fmt.Errorf("%w: %q of table %d is a %s, expected a numeric column", ErrInvalidColumn, name, tableID, t)
		}
	}

	rows, err := s.store.Columns(ctx, tableID, col1, col2)
	if err != nil {
		return nil, err
	}

	cells := make(map[string]CellMappings, len(rows))
	for i, row := range rows {
		cells[fmt.Sprintf("cell_%d", i+1)] = CellMappings{
			Mappings: map[string][2]any{embeddingName: {row[0], row[1]}},
		}
	}
	return cells, nil
}
