package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/yeisme/docvault/pkg/internal/storage/blob"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	if err := store.EnsureBucket(ctx, "b1"); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}

	payload := []byte("hello")
	if err := store.Put(ctx, "b1", "k1", bytes.NewReader(payload), int64(len(payload)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, err := store.Get(ctx, "b1", "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	got, err := io.ReadAll(rc)
	_ = rc.Close()

	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("content = %q, want %q", got, payload)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	_, err := store.Get(ctx, "missing", "k")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := store.EnsureBucket(ctx, "b"); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}

	_, err = store.Get(ctx, "b", "missing")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCopyAndList(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	if err := store.EnsureBucket(ctx, "b"); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}

	for _, key := range []string{"doc/v1/a", "doc/v2/a", "other/v1/b"} {
		if err := store.Put(ctx, "b", key, strings.NewReader(key), int64(len(key)), ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	if err := store.Copy(ctx, "b", "doc/v1/a", "doc/v3/a"); err != nil {
		t.Fatalf("copy: %v", err)
	}

	objects, err := store.List(ctx, "b", "doc/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(objects) != 3 {
		t.Errorf("len(objects) = %d, want 3", len(objects))
	}

	if err := store.Copy(ctx, "b", "doc/v9/a", "x"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("copy missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRemoveBucket(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	if err := store.EnsureBucket(ctx, "b"); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}

	if err := store.Put(ctx, "b", "k", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.RemoveBucket(ctx, "b"); err == nil {
		t.Error("removing non-empty bucket should fail")
	}

	if err := store.Delete(ctx, "b", "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := store.RemoveBucket(ctx, "b"); err != nil {
		t.Errorf("remove empty bucket: %v", err)
	}
}
