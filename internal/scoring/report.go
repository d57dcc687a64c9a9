package scoring

import "github.com/lvonguyen/scamforge/internal/entity"

// Report bonus parameters. The bonus stacks before the cap is applied, so
// a heavily reported entity hits the cap quickly.
const (
	reportBonusPerReport    = 10
	reportBonusReporters3   = 10
	reportBonusReporters5   = 20
	reportBonusCap          = 30
	reportReporterThreshold = 3
	reportReporterSurge     = 5
)

// ReportScorer boosts the risk score of entities backed by human reports.
// It reads report_count and unique_reporters from the evidence bag and is
// a no-op when no reports are attached.
type ReportScorer struct{}

// NewReportScorer creates the report stage.
func NewReportScorer() *ReportScorer { return &ReportScorer{} }

// Name implements Stage.
func (s *ReportScorer) Name() string { return "report" }

// Score applies the capped report bonus on top of the current risk score.
func (s *ReportScorer) Score(r *entity.Record) *entity.Record {
	count := evidenceInt(r.Evidence, "report_count")
	if count <= 0 {
		return r
	}
	reporters := evidenceInt(r.Evidence, "unique_reporters")

	bonus := count * reportBonusPerReport
	if reporters >= reportReporterThreshold {
		bonus += reportBonusReporters3
		if reporters >= reportReporterSurge {
			bonus += reportBonusReporters5
		}
	}
	if bonus > reportBonusCap {
		bonus = reportBonusCap
	}

	r.SetScore(r.RiskScore + bonus)
	return r
}

// evidenceInt reads an integer out of the evidence bag. Values decoded
// from JSON arrive as float64, so both numeric shapes are accepted.
func evidenceInt(evidence map[string]any, key string) int {
	switch v := evidence[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
