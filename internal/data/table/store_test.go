package table

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const umapCSV = `Image,Roi,cluster,UMAP_1,UMAP_2,count
1,10,a,0.5,-1.25,3
1,11,b,1.5,2,4
2,12,a,-3,0.125,
`

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "sub", "tables.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func importUMAP(t *testing.T, s *Store) int64 {
	t.Helper()

	id, err := s.Import(context.Background(), "umap.csv", strings.NewReader(umapCSV))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return id
}

func TestImport_InfersColumnTypes(t *testing.T) {
	s := newTestStore(t)
	id := importUMAP(t, s)

	cols, err := s.Headers(context.Background(), id)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	want := []Column{
		{"Image", ImageColumn},
		{"Roi", RoiColumn},
		{"cluster", StringColumn},
		{"UMAP_1", DoubleColumn},
		{"UMAP_2", DoubleColumn},
		{"count", LongColumn},
	}
	if len(cols) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(cols))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d: expected %+v, got %+v", i, want[i], cols[i])
		}
	}

	info, err := s.Info(context.Background(), id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "umap.csv" || info.Rows != 3 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestSlice(t *testing.T) {
	s := newTestStore(t)
	id := importUMAP(t, s)

	rows, err := s.Slice(context.Background(), id, 2)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != int64(1) || rows[0][2] != "a" || rows[0][3] != 0.5 {
		t.Errorf("unexpected first row %v", rows[0])
	}

	all, err := s.Slice(context.Background(), id, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[2][5] != nil {
		t.Errorf("expected NULL for empty cell, got %v", all[2][5])
	}
}

func TestColumns(t *testing.T) {
	s := newTestStore(t)
	id := importUMAP(t, s)

	rows, err := s.Columns(context.Background(), id, "UMAP_2", "UMAP_1")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	want := [][]any{{-1.25, 0.5}, {2.0, 1.5}, {0.125, -3.0}}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i][0] != want[i][0] || rows[i][1] != want[i][1] {
			t.Errorf("row %d: expected %v, got %v", i, want[i], rows[i])
		}
	}

	if _, err := s.Columns(context.Background(), id, "UMAP_1", "tSNE"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestTableNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Headers(context.Background(), 99); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Headers: expected ErrTableNotFound, got %v", err)
	}
	if _, err := s.Slice(context.Background(), 99, 5); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Slice: expected ErrTableNotFound, got %v", err)
	}
	if _, err := s.Info(context.Background(), 99); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Info: expected ErrTableNotFound, got %v", err)
	}
}

func TestImport_Errors(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"empty header", "a,,c\n1,2,3\n"},
		{"duplicate header", "a,a\n1,2\n"},
		{"ragged row", "a,b\n1\n"},
		{"non-integer id", "Image,x\nabc,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Import(context.Background(), tt.name, strings.NewReader(tt.csv)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	tables, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tables) != 0 {
		t.Fatalf("failed imports left %d tables", len(tables))
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	first := importUMAP(t, s)
	second := importUMAP(t, s)

	tables, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tables) != 2 || tables[0].ID != second || tables[1].ID != first {
		t.Fatalf("unexpected table list %+v", tables)
	}
}
