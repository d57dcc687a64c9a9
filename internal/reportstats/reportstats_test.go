package reportstats

import (
	"context"
	"errors"
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

type stubLoader struct {
	stats map[Key]entity.ReportStats
	err   error
	calls int
}

func (s *stubLoader) Load(ctx context.Context) (map[Key]entity.ReportStats, error) {
	s.calls++
	return s.stats, s.err
}

// =============================================================================
// Attach Tests
// =============================================================================

// TestAttach_MatchesByValueAndTypeID verifies stats land on the right
// record and the actionable count mirrors into evidence.
func TestAttach_MatchesByValueAndTypeID(t *testing.T) {
	phone := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "facebook")
	bank := entity.New(entity.TypeBank, "123456789012", entity.CountryVN, "facebook")
	clean := entity.New(entity.TypePhone, "0999999999", entity.CountryVN, "facebook")

	stats := map[Key]entity.ReportStats{
		{Value: "0912345678", TypeID: entity.TypePhone.ID()}: {Approved: 2, Pending: 1, Rejected: 5},
	}

	Attach([]*entity.Record{phone, bank, clean}, stats)

	if phone.ReportStats.Approved != 2 || phone.ReportStats.Pending != 1 {
		t.Errorf("phone stats = %+v", phone.ReportStats)
	}
	if got := phone.Evidence["report_count"]; got != 3 {
		t.Errorf("report_count evidence = %v, want 3 (rejected excluded)", got)
	}
	if bank.Evidence != nil || clean.Evidence != nil {
		t.Error("unreported records should stay untouched")
	}
}

// TestAttach_SameValueDifferentType verifies a phone and a bank account
// sharing digits do not cross-contaminate.
func TestAttach_SameValueDifferentType(t *testing.T) {
	phone := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "facebook")

	stats := map[Key]entity.ReportStats{
		{Value: "0912345678", TypeID: entity.TypeBank.ID()}: {Approved: 9},
	}

	Attach([]*entity.Record{phone}, stats)

	if phone.ReportStats.Approved != 0 {
		t.Error("bank-keyed stats attached to a phone record")
	}
}

// TestAttach_OnlyRejectedSkipsEvidence verifies records whose reports
// were all rejected get the stats but no actionable count.
func TestAttach_OnlyRejectedSkipsEvidence(t *testing.T) {
	r := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "facebook")

	stats := map[Key]entity.ReportStats{
		{Value: "0912345678", TypeID: entity.TypePhone.ID()}: {Rejected: 4},
	}

	Attach([]*entity.Record{r}, stats)

	if r.ReportStats.Rejected != 4 {
		t.Errorf("stats = %+v", r.ReportStats)
	}
	if _, ok := r.Evidence["report_count"]; ok {
		t.Error("rejected-only reports must not produce report_count evidence")
	}
}

// =============================================================================
// Cache Tests
// =============================================================================

// TestCachedLoader_NoRedisDelegates verifies a nil Redis client degrades
// to the inner loader on every call.
func TestCachedLoader_NoRedisDelegates(t *testing.T) {
	inner := &stubLoader{stats: map[Key]entity.ReportStats{
		{Value: "0912345678", TypeID: 1}: {Approved: 1},
	}}
	loader := NewCachedLoader(inner, nil, "", 0, nil)

	for i := 0; i < 2; i++ {
		stats, err := loader.Load(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(stats) != 1 {
			t.Fatalf("stats = %v", stats)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner loader called %d times, want 2", inner.calls)
	}
}

// TestCachedLoader_InnerErrorPropagates verifies load failures surface to
// the caller instead of being swallowed by the cache layer.
func TestCachedLoader_InnerErrorPropagates(t *testing.T) {
	inner := &stubLoader{err: errors.New("db down")}
	loader := NewCachedLoader(inner, nil, "", 0, nil)

	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("expected inner error to propagate")
	}
}

// TestStatsCodec_RoundTrip verifies the cache blob encoding preserves
// every key and count.
func TestStatsCodec_RoundTrip(t *testing.T) {
	in := map[Key]entity.ReportStats{
		{Value: "0912345678", TypeID: 1}:     {Approved: 2, Pending: 1},
		{Value: "123456789012", TypeID: 2}:   {Rejected: 3},
		{Value: "https://s.example/a", TypeID: 3}: {Approved: 1},
	}

	data, err := encodeStats(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeStats(data)
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != len(in) {
		t.Fatalf("round trip lost entries: %d vs %d", len(out), len(in))
	}
	for k, v := range in {
		if out[k] != v {
			t.Errorf("key %+v = %+v, want %+v", k, out[k], v)
		}
	}
}

// TestDecodeStats_RejectsGarbage verifies undecodable cache blobs error
// instead of returning partial data.
func TestDecodeStats_RejectsGarbage(t *testing.T) {
	if _, err := decodeStats([]byte("{not json")); err == nil {
		t.Error("garbage blob should fail to decode")
	}
}
