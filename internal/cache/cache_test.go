package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{PlaneCacheSizeMB: 16, PlaneTTL: time.Minute, DocumentCacheSize: 2})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPlaneCache(t *testing.T) {
	m := newTestManager(t)

	if _, ok := m.GetPlane("plane:1@0/0/0.0.0"); ok {
		t.Fatal("expected miss on empty cache")
	}

	plane := bytes.Repeat([]byte{1, 2, 3, 4}, 64*1024)
	if err := m.SetPlane("plane:1@0/0/0.0.0", plane); err != nil {
		t.Fatalf("SetPlane: %v", err)
	}
	got, ok := m.GetPlane("plane:1@0/0/0.0.0")
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, plane) {
		t.Fatal("cached plane differs")
	}

	stats := m.Stats()
	if stats["plane_cache_len"] != 1 {
		t.Errorf("unexpected plane_cache_len %v", stats["plane_cache_len"])
	}
}

func TestDocumentCacheEvicts(t *testing.T) {
	m := newTestManager(t)

	m.SetDocument("a", []byte("1"))
	m.SetDocument("b", []byte("2"))
	m.SetDocument("c", []byte("3"))

	if _, ok := m.GetDocument("a"); ok {
		t.Error("expected oldest document to be evicted")
	}
	if got, ok := m.GetDocument("c"); !ok || string(got) != "3" {
		t.Errorf("expected document c, got %q (%v)", got, ok)
	}
	if m.Stats()["document_cache_len"] != 2 {
		t.Errorf("unexpected document_cache_len %v", m.Stats()["document_cache_len"])
	}
}

func TestDocumentKey(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		level   int
		version int64
		want    string
	}{
		{"group level", "zattrs", -1, 42, "doc:zattrs:7@42"},
		{"array level", "zarray", 2, 42, "doc:zarray:7/2@42"},
		{"new version", "zarray", 2, 43, "doc:zarray:7/2@43"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocumentKey(tt.kind, 7, tt.level, tt.version); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
