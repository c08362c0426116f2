package models

import (
	"strings"
	"testing"
)

func TestGenerateTransactionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateTransactionID()
		if len(id) != 15 || !strings.HasPrefix(id, "TXN") {
			t.Fatalf("malformed transaction id: %q", id)
		}
		for _, ch := range id[3:] {
			if !strings.ContainsRune(txnIDAlphabet, ch) {
				t.Fatalf("invalid character %q in %q", ch, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate transaction id %q", id)
		}
		seen[id] = true
	}
}
