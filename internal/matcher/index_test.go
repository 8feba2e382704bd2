package matcher

import (
	"testing"

	"portfolio-reconciliation-service/internal/models"
)

func TestKeyIndex(t *testing.T) {
	records := []*models.AccountRecord{
		{AccountKey: "B"},
		{AccountKey: "A"},
		{AccountKey: "B"},
		{AccountKey: "C"},
		{AccountKey: "A"},
	}

	index := NewKeyIndex(records)

	if index.Len() != 3 {
		t.Errorf("expected 3 distinct keys, got %d", index.Len())
	}

	for _, k := range []string{"B", "A", "C"} {
		if !index.Contains(k) {
			t.Errorf("expected key %s to be indexed", k)
		}
	}
	if index.Contains("D") {
		t.Error("expected key D to be absent")
	}

	if got := len(index.Get("B")); got != 2 {
		t.Errorf("expected 2 records for B, got %d", got)
	}
	if index.Get("B")[0] != records[0] {
		t.Error("expected records for a key to keep snapshot order")
	}
	if index.Contains("Z") {
		t.Error("expected Z to be absent")
	}

	dups := index.Duplicates()
	if len(dups) != 2 || dups[0] != "A" || dups[1] != "B" {
		t.Errorf("expected sorted duplicates [A B], got %v", dups)
	}
}
