package kv

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// runBackendContract exercises the behavior every Backend must share.
// The backend must start empty.
func runBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		value, ok, err := b.Get(ctx, "table-state-missing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok || value != nil {
			t.Errorf("Get() = %q, %v; want nil, false", value, ok)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		want := []byte(`{"itemsPerPage":25}`)
		if err := b.Set(ctx, "table-state-orders", want); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, ok, err := b.Get(ctx, "table-state-orders")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v; want ok", ok, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Get() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overwrite changes revision", func(t *testing.T) {
		before := entryFor(t, b, "table-state-orders")
		if err := b.Set(ctx, "table-state-orders", []byte(`{"currentPage":3}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		after := entryFor(t, b, "table-state-orders")
		if before.Revision == after.Revision {
			t.Errorf("revision unchanged after overwrite: %s", after.Revision)
		}
		if after.Size != len(`{"currentPage":3}`) {
			t.Errorf("Size = %d, want %d", after.Size, len(`{"currentPage":3}`))
		}
	})

	t.Run("values are not aliased", func(t *testing.T) {
		buf := []byte("abc")
		if err := b.Set(ctx, "alias", buf); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		buf[0] = 'x'
		got, _, _ := b.Get(ctx, "alias")
		if string(got) != "abc" {
			t.Errorf("stored value changed with caller buffer: %q", got)
		}
		got[1] = 'y'
		again, _, _ := b.Get(ctx, "alias")
		if string(again) != "abc" {
			t.Errorf("stored value changed with returned buffer: %q", again)
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		if err := b.Set(ctx, "table-state-customers", []byte(`{}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		entries, err := b.List(ctx, "table-state-")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		var keys []string
		for _, e := range entries {
			keys = append(keys, e.Key)
			if e.Revision == "" {
				t.Errorf("entry %s has empty revision", e.Key)
			}
			if e.UpdatedAt.IsZero() {
				t.Errorf("entry %s has zero UpdatedAt", e.Key)
			}
		}
		want := []string{"table-state-customers", "table-state-orders"}
		if diff := cmp.Diff(want, keys); diff != "" {
			t.Errorf("List() keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := b.Delete(ctx, "table-state-customers"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, _ := b.Get(ctx, "table-state-customers"); ok {
			t.Error("key still present after Delete")
		}
		if err := b.Delete(ctx, "table-state-customers"); err != nil {
			t.Errorf("Delete() of missing key error = %v", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func entryFor(t *testing.T, b Backend, key string) Entry {
	t.Helper()
	entries, err := b.List(context.Background(), key)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, e := range entries {
		if e.Key == key {
			return e
		}
	}
	t.Fatalf("no entry for %s", key)
	return Entry{}
}
