package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Filesystem {
	t.Helper()
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	return fs
}

func TestPutGetDelete(t *testing.T) {
	fs := newStore(t)
	ctx := context.Background()
	key := NewKey(".pdf")

	if err := fs.Put(ctx, key, strings.NewReader("%PDF-1.4 payload")); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.4 payload" {
		t.Errorf("round trip mismatch: %q", data)
	}

	if err := fs.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Get(ctx, key); err != ErrNotFound {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}

	// Deleting a missing object is not an error.
	if err := fs.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	fs := newStore(t)
	ctx := context.Background()
	key := NewKey(".pdf")

	if err := fs.Put(ctx, key, strings.NewReader("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Put(ctx, key, strings.NewReader("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	rc, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Errorf("got %q, want overwrite to win", data)
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	fs := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"../escape.pdf", "/etc/passwd", "..", "."} {
		if err := fs.Put(ctx, key, strings.NewReader("x")); err != ErrNotFound {
			t.Errorf("Put(%q) err = %v, want ErrNotFound", key, err)
		}
		if _, err := fs.Get(ctx, key); err != ErrNotFound {
			t.Errorf("Get(%q) err = %v, want ErrNotFound", key, err)
		}
	}
}
