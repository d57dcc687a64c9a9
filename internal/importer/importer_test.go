package importer

import (
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// =============================================================================
// Upsert Row Tests
// =============================================================================

// TestUpsertArgs_OneSightingPerImport verifies the additive report_count
// column receives a single sighting per import, not the entity's
// cumulative report total. Re-importing an unchanged entity must not
// inflate the counter.
func TestUpsertArgs_OneSightingPerImport(t *testing.T) {
	r := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "ncsc")
	r.ReportStats = entity.ReportStats{Approved: 5, Pending: 2, Rejected: 1}
	r.SetScore(67)
	r.SetConfidence(0.67)

	args := upsertArgs(r)

	if len(args) != 7 {
		t.Fatalf("expected 7 positional args, got %d", len(args))
	}
	if args[2] != 1 {
		t.Errorf("report_count delta = %v, want 1 regardless of attached stats", args[2])
	}
}

// TestUpsertArgs_MapsVerdict verifies the identity and verdict columns.
func TestUpsertArgs_MapsVerdict(t *testing.T) {
	r := entity.New(entity.TypeURL, "https://scam.example.com/login", entity.CountryINT, "phishtank")
	r.SetScore(82)
	r.SetConfidence(0.9)

	args := upsertArgs(r)

	if args[0] != "https://scam.example.com/login" || args[1] != entity.TypeURL.ID() {
		t.Errorf("identity args = %v/%v", args[0], args[1])
	}
	if args[3] != entity.RiskHigh.ID() || args[4] != 82 {
		t.Errorf("verdict args = %v/%v", args[3], args[4])
	}
	if args[5] != 0.9 {
		t.Errorf("confidence arg = %v", args[5])
	}
}
