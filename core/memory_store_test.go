package core

import (
	"context"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.store == nil {
		t.Error("MemoryStore map should be initialized")
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Missing key returns "" and nil error per the Memory contract
	value, err := store.Get(ctx, "missing")
	if err != nil {
		t.Errorf("Get() returned unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("Get() for missing key = %v, want empty string", value)
	}

	if err := store.Set(ctx, "cart:lines", `[{"productId":"p1"}]`, 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	value, err = store.Get(ctx, "cart:lines")
	if err != nil {
		t.Errorf("Get() returned unexpected error: %v", err)
	}
	if value != `[{"productId":"p1"}]` {
		t.Errorf("Get() = %v, want stored value", value)
	}
}

func TestMemoryStore_Set(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value string
		ttl   time.Duration
	}{
		{
			name:  "set simple value",
			key:   "locale",
			value: "ar",
			ttl:   0,
		},
		{
			name:  "set with TTL",
			key:   "page:slug:about",
			value: "64f0c2",
			ttl:   time.Hour,
		},
		{
			name:  "overwrite existing",
			key:   "locale",
			value: "en",
			ttl:   0,
		},
		{
			name:  "empty value",
			key:   "cart:instructions",
			value: "",
			ttl:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Errorf("Set() error = %v", err)
			}

			got, err := store.Get(ctx, tt.key)
			if err != nil {
				t.Errorf("Get() after Set() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("After Set(), Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "ephemeral", "x", time.Nanosecond); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	value, err := store.Get(ctx, "ephemeral")
	if err != nil {
		t.Errorf("Get() error = %v", err)
	}
	if value != "" {
		t.Errorf("Get() after expiry = %v, want empty string", value)
	}

	exists, err := store.Exists(ctx, "ephemeral")
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() after expiry = true, want false")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "session:token", "abc", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := store.Delete(ctx, "session:token"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	exists, err := store.Exists(ctx, "session:token")
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Error("key should not exist after Delete()")
	}

	// Deleting a missing key is a no-op
	if err := store.Delete(ctx, "session:token"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	exists, err := store.Exists(ctx, "nope")
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() for missing key = true, want false")
	}

	if err := store.Set(ctx, "session:hint", "1", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	exists, err = store.Exists(ctx, "session:hint")
	if err != nil {
		t.Errorf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() for stored key = false, want true")
	}
}
