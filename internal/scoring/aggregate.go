package scoring

import (
	"math"
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Aggregator terms: a base score plus three capped components.
const (
	aggBaseScore       = 10
	aggFrequencyWeight = 2
	aggFrequencyCap    = 25
	aggSourceCap       = 60
	aggApprovedWeight  = 15
	aggPendingWeight   = 5
	aggReportCap       = 40
)

// Aggregator computes the authoritative risk score from observation
// frequency, source credibility and human report counts. It runs last and
// overwrites whatever the earlier layers produced; its confidence is
// derived purely from its own component sum.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates the terminal aggregation stage.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Name implements Stage.
func (a *Aggregator) Name() string { return "aggregate" }

// Score replaces the record's risk score, level and confidence with the
// aggregate verdict.
func (a *Aggregator) Score(r *entity.Record) *entity.Record {
	freq := r.Agg.Frequency
	if freq <= 0 {
		freq = 1
	}

	sources := r.Agg.SourceList()
	if len(sources) == 0 {
		sources = []string{r.Source}
	}

	freqScore := freq * aggFrequencyWeight
	if freqScore > aggFrequencyCap {
		freqScore = aggFrequencyCap
	}

	sourceScore := 0
	for _, src := range sources {
		sourceScore += a.credibility(src)
	}
	if sourceScore > aggSourceCap {
		sourceScore = aggSourceCap
	}

	reportScore := r.ReportStats.Approved*aggApprovedWeight +
		r.ReportStats.Pending*aggPendingWeight
	if reportScore > aggReportCap {
		reportScore = aggReportCap
	}

	r.SetScore(aggBaseScore + freqScore + sourceScore + reportScore)

	confidence := float64(freqScore+sourceScore+reportScore) / 100
	if confidence > 1 {
		confidence = 1
	}
	r.SetConfidence(math.Round(confidence*100) / 100)
	return r
}

func (a *Aggregator) credibility(source string) int {
	if w, ok := a.cfg.SourceCredibility[strings.ToLower(source)]; ok {
		return w
	}
	return a.cfg.DefaultSourceCredibility
}
