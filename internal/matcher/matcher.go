// Package matcher joins two normalized snapshots on account key.
//
// The join is an inner join for the matched partition and an anti-join in
// each direction for the unmatched partitions. Output order follows the input:
// accounts only in the previous snapshot keep previous order, everything else
// keeps current order.
package matcher

import (
	"fmt"
	"strings"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// DuplicatePolicy decides what happens when a key repeats within a snapshot.
type DuplicatePolicy string

const (
	// DuplicatesAllow pairs every previous row with every current row of the key.
	DuplicatesAllow DuplicatePolicy = "allow"
	// DuplicatesReject fails the match with a DuplicateKeyError.
	DuplicatesReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy parses "allow" or "reject", case-insensitively
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DuplicatesAllow, DuplicatesReject:
		return p, nil
	case "":
		return DuplicatesAllow, nil
	}
	return "", errors.ConfigurationError(errors.CodeInvalidConfig, "duplicate_keys", s, nil).
		WithSuggestion("use 'allow' or 'reject'")
}

// DuplicateKeys lists the keys that repeat within each snapshot.
type DuplicateKeys struct {
	Previous []string `json:"previous,omitempty"`
	Current  []string `json:"current,omitempty"`
}

// Empty reports whether neither snapshot has duplicate keys
func (d DuplicateKeys) Empty() bool {
	return len(d.Previous) == 0 && len(d.Current) == 0
}

// Partitions is the result of joining two snapshots.
type Partitions struct {
	OnlyPrevious []*models.AccountRecord `json:"onlyPrevious"`
	OnlyCurrent  []*models.AccountRecord `json:"onlyCurrent"`
	Matched      []models.MatchedPair    `json:"matched"`
	Duplicates   DuplicateKeys           `json:"duplicates"`

	previous *KeyIndex
	current  *KeyIndex
}

// PreviousKeys returns the number of distinct keys in the previous snapshot
func (p *Partitions) PreviousKeys() int { return p.previous.Len() }

// CurrentKeys returns the number of distinct keys in the current snapshot
func (p *Partitions) CurrentKeys() int { return p.current.Len() }

// OnlyPreviousKeys returns the number of distinct keys missing from current
func (p *Partitions) OnlyPreviousKeys() int { return distinct(p.OnlyPrevious) }

// OnlyCurrentKeys returns the number of distinct keys missing from previous
func (p *Partitions) OnlyCurrentKeys() int { return distinct(p.OnlyCurrent) }

func distinct(records []*models.AccountRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.AccountKey] = struct{}{}
	}
	return len(seen)
}

// Matcher joins snapshots under a fixed duplicate policy
type Matcher struct {
	policy DuplicatePolicy
	logger logger.Logger
}

// NewMatcher creates a Matcher. An empty policy means DuplicatesAllow.
func NewMatcher(policy DuplicatePolicy, log logger.Logger) *Matcher {
	if policy == "" {
		policy = DuplicatesAllow
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Matcher{policy: policy, logger: log.WithComponent("matcher")}
}

// Match joins the snapshots with the given policy
func Match(prev, curr *models.Snapshot, policy DuplicatePolicy) (*Partitions, error) {
	return NewMatcher(policy, nil).Match(prev, curr)
}

// Match joins prev and curr on account key
func (m *Matcher) Match(prev, curr *models.Snapshot) (*Partitions, error) {
	if prev == nil || curr == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "matching",
			fmt.Errorf("both snapshots are required"))
	}

	prevIndex := NewKeyIndex(prev.Records)
	currIndex := NewKeyIndex(curr.Records)

	parts := &Partitions{
		OnlyPrevious: []*models.AccountRecord{},
		OnlyCurrent:  []*models.AccountRecord{},
		Matched:      []models.MatchedPair{},
		Duplicates: DuplicateKeys{
			Previous: prevIndex.Duplicates(),
			Current:  currIndex.Duplicates(),
		},
		previous: prevIndex,
		current:  currIndex,
	}

	if !parts.Duplicates.Empty() {
		m.logger.WithFields(logger.Fields{
			"previous_duplicates": len(parts.Duplicates.Previous),
			"current_duplicates":  len(parts.Duplicates.Current),
			"policy":              m.policy,
		}).Warn("Duplicate account keys found")

		if m.policy == DuplicatesReject {
			if len(parts.Duplicates.Previous) > 0 {
				return nil, errors.NewDuplicateKeyError(string(models.PeriodPrevious), parts.Duplicates.Previous)
			}
			return nil, errors.NewDuplicateKeyError(string(models.PeriodCurrent), parts.Duplicates.Current)
		}
	}

	for _, r := range prev.Records {
		if !currIndex.Contains(r.AccountKey) {
			parts.OnlyPrevious = append(parts.OnlyPrevious, r)
		}
	}

	for _, r := range curr.Records {
		previous := prevIndex.Get(r.AccountKey)
		if len(previous) == 0 {
			parts.OnlyCurrent = append(parts.OnlyCurrent, r)
			continue
		}
		for _, p := range previous {
			parts.Matched = append(parts.Matched, models.MatchedPair{Previous: p, Current: r})
		}
	}

	m.logger.WithFields(logger.Fields{
		"previous_records": len(prev.Records),
		"current_records":  len(curr.Records),
		"matched":          len(parts.Matched),
		"only_previous":    len(parts.OnlyPrevious),
		"only_current":     len(parts.OnlyCurrent),
	}).Debug("Matched snapshots")

	return parts, nil
}
