package embedcache

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/career-planner/internal/ai"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string, _ ai.EmbedMode) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCacheReusesVectors(t *testing.T) {
	next := &countingEmbedder{}
	cache := New(next, Options{Namespace: "m"}, nil)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "golang", ai.EmbedQuery)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := cache.Embed(ctx, "golang", ai.EmbedQuery)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if next.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", next.calls)
	}
	if first[0] != second[0] {
		t.Fatalf("expected identical vectors")
	}

	if _, err := cache.Embed(ctx, "golang", ai.EmbedDocument); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected mode to be part of the key, got %d calls", next.calls)
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 2 {
		t.Fatalf("unexpected stats: hits=%d misses=%d", hits, misses)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	next := &countingEmbedder{err: errors.New("quota")}
	cache := New(next, Options{}, nil)

	for i := 0; i < 2; i++ {
		if _, err := cache.Embed(context.Background(), "x", ai.EmbedQuery); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected failures to reach upstream each time, got %d", next.calls)
	}
}

func TestCacheEvictsWhenFull(t *testing.T) {
	next := &countingEmbedder{}
	cache := New(next, Options{MaxEntries: 2}, nil)
	ctx := context.Background()

	for _, text := range []string{"a", "bb", "ccc", "dddd"} {
		if _, err := cache.Embed(ctx, text, ai.EmbedQuery); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	if n := cache.entries.Load(); n > 2 {
		t.Fatalf("expected at most 2 entries, got %d", n)
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	if Key("m", "text", ai.EmbedQuery) != Key("m", "text", ai.EmbedQuery) {
		t.Fatal("expected stable key")
	}
	if Key("m", "text", ai.EmbedQuery) == Key("other", "text", ai.EmbedQuery) {
		t.Fatal("expected namespace to change the key")
	}
}
