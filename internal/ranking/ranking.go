// Package ranking orders and merges green-list records across runs.
package ranking

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"reposift/internal/candidate"
)

// Sort orders records by last activity descending, then stars descending.
// Missing or unparsable timestamps sort last; missing stars count as zero.
// Ties keep their input order.
func Sort(records []candidate.Record) {
	slices.SortStableFunc(records, func(a, b candidate.Record) int {
		ta, tb := activity(a), activity(b)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return cmp.Compare(b.StarCount(), a.StarCount())
	})
}

// Dedupe keeps the first record for each identity.
func Dedupe(records []candidate.Record) []candidate.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]candidate.Record, 0, len(records))
	for _, record := range records {
		id := record.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, record)
	}
	return out
}

// Merge appends fresh to previous, dedupes so previous entries win, and sorts.
func Merge(previous, fresh []candidate.Record) []candidate.Record {
	combined := make([]candidate.Record, 0, len(previous)+len(fresh))
	combined = append(combined, previous...)
	combined = append(combined, fresh...)
	merged := Dedupe(combined)
	Sort(merged)
	return merged
}

// Owned reports whether an identity is owned externally.
type Owned interface {
	Has(identity string) bool
}

// Reconcile drops records whose identity is now owned. It returns the kept
// records and the number removed.
func Reconcile(green []candidate.Record, owned Owned) ([]candidate.Record, int) {
	if owned == nil {
		return green, 0
	}
	out := make([]candidate.Record, 0, len(green))
	for _, record := range green {
		if owned.Has(record.Identity()) {
			continue
		}
		out = append(out, record)
	}
	return out, len(green) - len(out)
}

// activityLayouts are the ISO-8601 forms accepted for pushed_at. Values
// without a zone are read as UTC.
var activityLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

func activity(r candidate.Record) time.Time {
	if r.PushedAt == nil {
		return time.Time{}
	}
	value := strings.TrimSpace(*r.PushedAt)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range activityLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
