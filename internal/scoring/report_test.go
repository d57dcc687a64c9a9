package scoring

import (
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// =============================================================================
// Report Bonus Tests
// =============================================================================

// TestReport_NoReportsIsNoop verifies the stage leaves untouched records
// without report evidence.
func TestReport_NoReportsIsNoop(t *testing.T) {
	r := testRecord(entity.TypePhone, "0912345678", "facebook")
	r.SetScore(30)

	NewReportScorer().Score(r)

	if r.RiskScore != 30 {
		t.Errorf("score changed to %d without reports", r.RiskScore)
	}
}

// TestReport_BonusLadder verifies per-report bonus, reporter thresholds,
// stacking and the cap.
func TestReport_BonusLadder(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		reporters int
		base      int
		want      int
	}{
		{"one report", 1, 1, 0, 10},
		{"two reports", 2, 2, 0, 20},
		{"three reports capped", 3, 2, 0, 30},
		{"reporter threshold stacks", 1, 3, 0, 20},
		{"surge stacks then caps", 1, 5, 0, 30},
		{"cap plus base", 4, 6, 50, 80},
		{"total capped at 100", 4, 6, 90, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRecord(entity.TypePhone, "0912345678", "facebook")
			if tt.base > 0 {
				r.SetScore(tt.base)
			}
			ev := r.EnsureEvidence()
			ev["report_count"] = tt.count
			ev["unique_reporters"] = tt.reporters

			NewReportScorer().Score(r)

			if r.RiskScore != tt.want {
				t.Errorf("score = %d, want %d", r.RiskScore, tt.want)
			}
		})
	}
}

// TestReport_JSONNumbersAccepted verifies float64 counts from decoded
// JSON evidence work the same as ints.
func TestReport_JSONNumbersAccepted(t *testing.T) {
	r := testRecord(entity.TypePhone, "0912345678", "facebook")
	ev := r.EnsureEvidence()
	ev["report_count"] = float64(2)
	ev["unique_reporters"] = float64(3)

	NewReportScorer().Score(r)

	if r.RiskScore != 30 {
		t.Errorf("score = %d, want 30 (20 + 10 reporter bonus)", r.RiskScore)
	}
}
