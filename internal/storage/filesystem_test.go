package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	key, err := store.Write(ctx, "/results/../results/a.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "results/a.png" {
		t.Fatalf("key mismatch: %q", key)
	}
	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read: %q %v", data, err)
	}
	if _, err := store.Read(ctx, "results/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Write(ctx, "../../etc/passwd", nil); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestPublicURLAndKeyFromURL(t *testing.T) {
	url := PublicURL("http://localhost:8080/static/", "/results/a.png")
	if url != "http://localhost:8080/static/results/a.png" {
		t.Fatalf("url mismatch: %s", url)
	}
	key, ok := KeyFromURL("http://localhost:8080/static", url)
	if !ok || key != "results/a.png" {
		t.Fatalf("key mismatch: %q %v", key, ok)
	}
	if _, ok := KeyFromURL("http://localhost:8080/static", "https://elsewhere.example/a.png"); ok {
		t.Fatalf("foreign url accepted")
	}
}

func TestFileStoreWriteReplacesAtomically(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if _, err := store.Write(ctx, "results/b.png", []byte(body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	data, err := store.Read(ctx, "results/b.png")
	if err != nil || string(data) != "second" {
		t.Fatalf("Read: %q %v", data, err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "results"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("staging files left behind: %d entries", len(entries))
	}
}

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"a.png":            "a.png",
		`results\a.png`:    "results/a.png",
		"./results//a.png": "results/a.png",
		"/x/y/../z.png":    "x/z.png",
	}
	for in, want := range cases {
		got, err := cleanKey(in)
		if err != nil || got != want {
			t.Errorf("cleanKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "  ", "..", "../a", "a/../../b", "/"} {
		if _, err := cleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("cleanKey(%q) err = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestNilFileStore(t *testing.T) {
	var store *FileStore
	if _, err := store.Read(context.Background(), "a"); err == nil {
		t.Fatalf("expected error from nil store")
	}
	if store.BasePath() != "" {
		t.Fatalf("nil store has a base path")
	}
}
