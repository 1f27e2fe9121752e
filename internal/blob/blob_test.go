package blob

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestPutAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key, err := store.Put(strings.NewReader("%PDF-1.7 test content"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key == "" {
		t.Fatal("expected non-empty key")
	}

	r, err := store.Open(key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "%PDF-1.7 test content" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestOpenUnknownKey(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open("9a4cf08a-3b5c-4a57-9f4e-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../secrets", "a/b", "..", "config.yaml"} {
		if _, err := store.Open(key); !errors.Is(err, ErrNotFound) {
			t.Errorf("key %q: expected ErrNotFound, got %v", key, err)
		}
	}
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := store.Put(strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(key); !errors.Is(err, ErrNotFound) {
		t.Error("expected blob gone after delete")
	}
	if err := store.Delete(key); err != nil {
		t.Errorf("deleting unknown key must not error, got %v", err)
	}
}
