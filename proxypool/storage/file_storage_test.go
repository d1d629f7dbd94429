package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileSink_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "proxies.txt")
	lines := []string{"http://1.2.3.4:8080", "https://5.6.7.8:3128"}

	fs := NewFileSink()
	if err := fs.Save(path, lines); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "http://1.2.3.4:8080\nhttps://5.6.7.8:3128" {
		t.Errorf("unexpected file content %q", data)
	}

	got, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("Load() = %v, want %v", got, lines)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFileSink_NoDestination(t *testing.T) {
	fs := NewFileSink()
	if err := fs.Save("  ", []string{"x"}); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Expected ErrNoDestination, got %v", err)
	}
	if _, err := fs.Load(""); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Expected ErrNoDestination, got %v", err)
	}
}

func TestFileSink_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewFileSink().Save(filepath.Join(blocker, "proxies.txt"), []string{"x"}); err == nil {
		t.Error("Expected an error when the parent is a regular file")
	}
}

func TestFileSink_LoadMissingFile(t *testing.T) {
	_, err := NewFileSink().Load(filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}
