package persist

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("found %d migrations, want at least 2", len(entries))
	}
	for _, e := range entries {
		raw, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		if err != nil {
			t.Fatal(err)
		}
		src := string(raw)
		if !strings.Contains(src, "-- +goose Up") || !strings.Contains(src, "-- +goose Down") {
			t.Errorf("%s lacks goose Up/Down annotations", e.Name())
		}
	}
}
