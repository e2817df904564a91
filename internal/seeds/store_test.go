package seeds

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadHappyPath(t *testing.T) {
	path := writeSeedFile(t, `{"Go": {"theory": ["What is a goroutine", "Explain channels"], "coding": ["Reverse a string"]}}`)

	store := Load(path, zap.NewNop())

	if store.Len() != 3 {
		t.Fatalf("expected 3 seeded questions, got %d", store.Len())
	}

	pool := store.Questions("Go", "theory")
	if !reflect.DeepEqual(pool, []string{"What is a goroutine", "Explain channels"}) {
		t.Fatalf("unexpected pool: %v", pool)
	}

	if got := store.Questions("Go", "design"); len(got) != 0 {
		t.Fatalf("expected empty pool for unknown type, got %v", got)
	}
	if got := store.Questions("SQL", "theory"); len(got) != 0 {
		t.Fatalf("expected empty pool for unknown topic, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := Load(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeSeedFile(t, `{"Go": "not a map"}`)

	store := Load(path, zap.NewNop())
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	if store.Questions("Go", "theory") != nil {
		t.Fatal("expected nil pool from nil store")
	}
	if store.Len() != 0 {
		t.Fatal("expected zero length from nil store")
	}
}
