package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "spend", []byte("snapshot"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "spend")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "snapshot" {
		t.Errorf("Expected 'snapshot', got %q", got)
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	now := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "spend", []byte("snapshot"), time.Minute)

	now = now.Add(59 * time.Second)
	if _, err := c.Get(ctx, "spend"); err != nil {
		t.Fatalf("Expected entry before expiry, got %v", err)
	}

	now = now.Add(time.Second)
	if _, err := c.Get(ctx, "spend"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestInMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a to be deleted, got %v", err)
	}

	c.Clear(ctx)
	if _, err := c.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected b to be cleared, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	in := map[string]string{"AWS Lambda": "25.10"}
	if err := SetJSON(ctx, c, "spend", in, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out map[string]string
	if err := GetJSON(ctx, c, "spend", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out["AWS Lambda"] != "25.10" {
		t.Errorf("Unexpected value: %v", out)
	}

	if err := GetJSON(ctx, c, "missing", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
