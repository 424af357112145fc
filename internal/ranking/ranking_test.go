package ranking

import (
	"slices"
	"testing"

	"reposift/internal/candidate"
	"reposift/internal/setstore"
)

func record(id string, pushed string, stars int) candidate.Record {
	r := candidate.Record{HTMLURL: id, Stars: &stars}
	if pushed != "" {
		r.PushedAt = &pushed
	}
	return r
}

func TestSortByActivityThenStars(t *testing.T) {
	records := []candidate.Record{
		record("jan", "2024-01-01T00:00:00Z", 10),
		record("missing", "", 999),
		record("jun", "2024-06-01T00:00:00Z", 10),
	}
	Sort(records)
	got := candidate.Identities(records)
	if want := []string{"jun", "jan", "missing"}; !slices.Equal(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}
}

func TestSortAcceptsDateOnlyAndZonelessTimestamps(t *testing.T) {
	records := []candidate.Record{
		record("jan", "2024-01-01", 10),
		record("missing", "", 999),
		record("jun", "2024-06-01", 10),
	}
	Sort(records)
	if got, want := candidate.Identities(records), []string{"jun", "jan", "missing"}; !slices.Equal(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}

	mixed := []candidate.Record{
		record("zoned", "2024-03-01T12:00:00Z", 1),
		record("naive-later", "2024-03-01T13:00:00", 1),
		record("offset-earlier", "2024-03-01T13:00:00+02:00", 1),
		record("fraction", "2024-03-01T12:30:00.250000", 1),
	}
	Sort(mixed)
	want := []string{"naive-later", "fraction", "zoned", "offset-earlier"}
	if got := candidate.Identities(mixed); !slices.Equal(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}
}

func TestSortUnparsableAndNilStars(t *testing.T) {
	bad := "yesterday"
	records := []candidate.Record{
		{HTMLURL: "bad", PushedAt: &bad},
		record("old", "2001-01-01T00:00:00Z", 1),
		{HTMLURL: "nil-stars", PushedAt: ptr("2001-01-01T00:00:00Z")},
	}
	Sort(records)
	got := candidate.Identities(records)
	if want := []string{"old", "nil-stars", "bad"}; !slices.Equal(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}
}

func TestSortIsStableOnTies(t *testing.T) {
	records := []candidate.Record{
		record("first", "2024-01-01T00:00:00Z", 5),
		record("second", "2024-01-01T00:00:00Z", 5),
		record("third", "2024-01-01T00:00:00Z", 5),
	}
	Sort(records)
	if got := candidate.Identities(records); !slices.Equal(got, []string{"first", "second", "third"}) {
		t.Fatalf("tie order changed: %v", got)
	}
}

func TestSortComparesInstantsAcrossOffsets(t *testing.T) {
	records := []candidate.Record{
		record("utc", "2024-01-01T10:00:00Z", 1),
		record("offset", "2024-01-01T12:00:00+01:00", 1),
	}
	Sort(records)
	if got := candidate.Identities(records); !slices.Equal(got, []string{"offset", "utc"}) {
		t.Fatalf("Sort = %v", got)
	}
}

func TestMergePrefersPreviousRecord(t *testing.T) {
	prevPercent := 90.0
	previous := []candidate.Record{record("x", "2024-01-01T00:00:00Z", 1)}
	previous[0].LanguagePercent = &prevPercent
	fresh := []candidate.Record{
		record("x", "2024-09-01T00:00:00Z", 50),
		record("y", "2024-02-01T00:00:00Z", 2),
	}

	merged := Merge(previous, fresh)
	if got := candidate.Identities(merged); !slices.Equal(got, []string{"y", "x"}) {
		t.Fatalf("Merge = %v", got)
	}
	x := merged[1]
	if x.StarCount() != 1 || x.LanguagePercent == nil || *x.LanguagePercent != 90 {
		t.Fatalf("expected previously persisted x, got %+v", x)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	previous := []candidate.Record{
		record("a", "2024-01-01T00:00:00Z", 1),
		record("b", "2024-03-01T00:00:00Z", 1),
	}
	once := Merge(previous, nil)
	twice := Merge(once, nil)
	if !slices.Equal(candidate.Identities(once), candidate.Identities(twice)) {
		t.Fatalf("second merge changed order: %v vs %v", candidate.Identities(once), candidate.Identities(twice))
	}
}

func TestReconcileDropsOwned(t *testing.T) {
	green := []candidate.Record{record("a", "", 0), record("b", "", 0), record("c", "", 0)}
	kept, removed := Reconcile(green, setstore.NewIdentitySet("b"))
	if removed != 1 || !slices.Equal(candidate.Identities(kept), []string{"a", "c"}) {
		t.Fatalf("Reconcile = %v removed=%d", candidate.Identities(kept), removed)
	}
}

func ptr[T any](v T) *T { return &v }
