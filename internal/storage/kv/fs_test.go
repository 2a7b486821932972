package kv

import (
	"context"
	"errors"
	"testing"
)

func TestFSRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFS(t.TempDir())

	if err := store.Set(ctx, "resource:content:abc123", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "resource:content:abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("unexpected value: %s", got)
	}
}

func TestFSGetMissing(t *testing.T) {
	t.Parallel()

	store := NewFS(t.TempDir())
	_, err := store.Get(context.Background(), "resource:content:nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSSetOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFS(t.TempDir())

	if err := store.Set(ctx, "meta-data:https___a", []byte("one")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "meta-data:https___a", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := store.Get(ctx, "meta-data:https___a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("expected overwrite, got %s", got)
	}
}

func TestFSKeysPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFS(t.TempDir())

	seed := map[string]string{
		"resource:content:a":       "1",
		"resource:content:b":       "2",
		"resource:asset:c":         "3",
		"subscription:email:x@y.z": "4",
	}
	for key, value := range seed {
		if err := store.Set(ctx, key, []byte(value)); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	keys, err := store.Keys(ctx, "resource:content")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "resource:content:a" || keys[1] != "resource:content:b" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	all, err := store.Keys(ctx, "")
	if err != nil {
		t.Fatalf("keys all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 keys, got %v", all)
	}
}

func TestFSKeysMissingPrefix(t *testing.T) {
	t.Parallel()

	store := NewFS(t.TempDir())
	keys, err := store.Keys(context.Background(), "resource:content")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestFSDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFS(t.TempDir())

	if err := store.Set(ctx, "subscription:whatsapp:155500", []byte("s")); err != nil {
		t.Fatalf("set: %v", err)
	}

	deleted, err := store.Delete(ctx, "subscription:whatsapp:155500")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}

	deleted, err = store.Delete(ctx, "subscription:whatsapp:155500")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("second delete reported true")
	}
}

func TestFSGetItemsSkipsMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFS(t.TempDir())

	if err := store.Set(ctx, "resource:asset:a", []byte("1")); err != nil {
		t.Fatalf("set: %v", err)
	}

	items, err := store.GetItems(ctx, []string{"resource:asset:a", "resource:asset:missing"})
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 1 || items[0].Key != "resource:asset:a" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestMemoryMatchesFSBehavior(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()

	if err := store.Set(ctx, "resource:content:a", []byte("1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Get(ctx, "resource:contentx:a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	keys, err := store.Keys(ctx, "resource:content")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "resource:content:a" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	keys, err = store.Keys(ctx, "resource:cont")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("partial segment matched: %v", keys)
	}
}
