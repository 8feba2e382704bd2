package matcher

import (
	"sort"

	"portfolio-reconciliation-service/internal/models"
)

// KeyIndex groups the records of one snapshot by account key while
// remembering the order in which keys first appeared.
type KeyIndex struct {
	byKey map[string][]*models.AccountRecord
	order []string
}

// NewKeyIndex creates an index over the snapshot's records
func NewKeyIndex(records []*models.AccountRecord) *KeyIndex {
	index := &KeyIndex{
		byKey: make(map[string][]*models.AccountRecord, len(records)),
	}
	for _, r := range records {
		if _, seen := index.byKey[r.AccountKey]; !seen {
			index.order = append(index.order, r.AccountKey)
		}
		index.byKey[r.AccountKey] = append(index.byKey[r.AccountKey], r)
	}
	return index
}

// Get returns every record with the key, in snapshot order
func (ki *KeyIndex) Get(key string) []*models.AccountRecord {
	return ki.byKey[key]
}

// Contains reports whether the key occurs in the snapshot
func (ki *KeyIndex) Contains(key string) bool {
	_, ok := ki.byKey[key]
	return ok
}

// Len returns the number of distinct keys
func (ki *KeyIndex) Len() int {
	return len(ki.order)
}

// Duplicates returns the keys that occur more than once, sorted
func (ki *KeyIndex) Duplicates() []string {
	var dups []string
	for key, records := range ki.byKey {
		if len(records) > 1 {
			dups = append(dups, key)
		}
	}
	sort.Strings(dups)
	return dups
}
