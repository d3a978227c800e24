package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ome-tiles/server/internal/data/table"
)

func TestTableService_Preview(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)
	svc := NewTableService(env.tables)

	p, err := svc.Preview(context.Background(), id)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Name != "cells.csv" || len(p.Columns) != 4 || len(p.Rows) != 3 {
		t.Fatalf("unexpected preview %+v", p)
	}
	if p.Columns[0] != (table.Column{Name: "Roi", Type: table.RoiColumn}) {
		t.Errorf("unexpected first column %+v", p.Columns[0])
	}

	if _, err := svc.Preview(context.Background(), id+100); !errors.Is(err, table.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestTableService_Cells(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)
	svc := NewTableService(env.tables)

	cells, err := svc.Cells(context.Background(), id, "UMAP_1", "UMAP_2")
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}

	b, err := json.Marshal(cells)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"cell_1":{"mappings":{"UMAP":[0.5,-1]}},` +
		`"cell_2":{"mappings":{"UMAP":[1.5,2]}},` +
		`"cell_3":{"mappings":{"UMAP":[-3,0.25]}}}`
	if string(b) != want {
		t.Fatalf("unexpected cells.json\n got: %s\nwant: %s", b, want)
	}
}

func TestTableService_CellsErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.importTable(t)
	svc := NewTableService(env.tables)
	ctx := context.Background()

	if _, err := svc.Cells(ctx, id, "UMAP_1", "tSNE_2"); !errors.Is(err, table.ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
	if _, err := svc.Cells(ctx, id, "label", "UMAP_2"); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("expected ErrInvalidColumn, got %v", err)
	}
	if _, err := svc.Cells(ctx, id+1, "UMAP_1", "UMAP_2"); !errors.Is(err, table.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}
