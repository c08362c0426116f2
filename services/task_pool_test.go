package services

import (
	"testing"

	"review-task-system/models"

	"github.com/shopspring/decimal"
)

func samplePool(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:    string(rune('a' + i)),
			Title: "product",
			Price: decimal.NewFromInt(int64(i + 1)),
		}
	}
	return products
}

func TestPoolSeedStable(t *testing.T) {
	a := PoolSeed("user-1", "level-1")
	b := PoolSeed("user-1", "level-1")
	if a != b {
		t.Fatalf("PoolSeed not stable: %d != %d", a, b)
	}
}

func TestPoolSeedVariesByUserAndLevel(t *testing.T) {
	base := PoolSeed("user-1", "level-1")
	if PoolSeed("user-2", "level-1") == base {
		t.Error("different users produced the same seed")
	}
	if PoolSeed("user-1", "level-2") == base {
		t.Error("different levels produced the same seed")
	}
	// The separator byte must prevent boundary collisions.
	if PoolSeed("user-1x", "level") == PoolSeed("user-1", "xlevel") {
		t.Error("seed collides across the user/level boundary")
	}
}

func TestPermutePoolDeterministic(t *testing.T) {
	pool := samplePool(20)
	seed := PoolSeed("user-1", "level-1")

	first := PermutePool(pool, seed)
	second := PermutePool(pool, seed)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("permutation not deterministic at slot %d: %s != %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestPermutePoolIsPermutation(t *testing.T) {
	pool := samplePool(20)
	out := PermutePool(pool, 42)

	if len(out) != len(pool) {
		t.Fatalf("expected %d products, got %d", len(pool), len(out))
	}
	seen := map[string]bool{}
	for _, p := range out {
		if seen[p.ID] {
			t.Fatalf("product %s appears twice", p.ID)
		}
		seen[p.ID] = true
	}
	for _, p := range pool {
		if !seen[p.ID] {
			t.Fatalf("product %s missing from permutation", p.ID)
		}
	}
}

func TestPermutePoolDoesNotMutateInput(t *testing.T) {
	pool := samplePool(10)
	original := make([]string, len(pool))
	for i, p := range pool {
		original[i] = p.ID
	}

	PermutePool(pool, 7)
	for i, p := range pool {
		if p.ID != original[i] {
			t.Fatalf("input slice mutated at %d", i)
		}
	}
}
