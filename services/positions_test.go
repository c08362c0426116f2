package services

import "testing"

func TestNextContinuousPosition(t *testing.T) {
	// Threshold 8: appends land on 9, 10, 11, ...
	if got := nextContinuousPosition(8, 0); got != 9 {
		t.Fatalf("first append: want 9, got %d", got)
	}
	if got := nextContinuousPosition(8, 2); got != 11 {
		t.Fatalf("third append: want 11, got %d", got)
	}
	// Threshold 0 (small levels): the whole queue is the continuous region.
	if got := nextContinuousPosition(0, 0); got != 1 {
		t.Fatalf("threshold 0: want 1, got %d", got)
	}
}
