package scoring

import (
	"net/url"
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Trust blend weights: source reputation dominates, evidence completeness
// and cross-source corroboration split the remainder.
const (
	trustWeightReputation  = 0.50
	trustWeightEvidence    = 0.25
	trustWeightCrossSource = 0.25
)

// TrustScorer blends source reputation, evidence completeness and
// cross-source corroboration into a trust score in [0,1], then folds that
// trust into the record confidence and nudges the risk score at the
// extremes.
type TrustScorer struct {
	cfg Config
	idx SourceIndex
}

// NewTrustScorer creates the trust stage. idx is consulted only when the
// record's aggregation sources are not populated yet.
func NewTrustScorer(cfg Config, idx SourceIndex) *TrustScorer {
	return &TrustScorer{cfg: cfg, idx: idx}
}

// Name implements Stage.
func (s *TrustScorer) Name() string { return "trust" }

// Score computes and stores the trust score, blends it into confidence,
// and applies the high/low trust nudge to an already-scored record.
func (s *TrustScorer) Score(r *entity.Record) *entity.Record {
	rep := s.reputation(r.Source)
	ev := evidenceScore(r)
	count := s.sourceCount(r)
	cross := crossSourceScore(count)

	trust := clamp01(trustWeightReputation*rep +
		trustWeightEvidence*ev +
		trustWeightCrossSource*cross)

	r.Agg.TrustScore = trust
	r.Agg.TrustScored = true
	r.Agg.TrustFactors = map[string]any{
		"source":             r.Source,
		"source_trust":       rep,
		"evidence_score":     ev,
		"source_count":       count,
		"cross_source_score": cross,
		"weights": map[string]float64{
			"reputation":   trustWeightReputation,
			"evidence":     trustWeightEvidence,
			"cross_source": trustWeightCrossSource,
		},
	}

	if r.ConfidenceSet {
		r.SetConfidence(0.65*r.Confidence + 0.35*trust)
	} else {
		r.SetConfidence(trust)
	}

	if r.Scored {
		score := r.RiskScore
		switch {
		case trust >= 0.85:
			score += 10
		case trust <= 0.40:
			score -= 10
		}
		score = clampScore(score)
		r.RiskScore = score
		switch {
		case score >= entity.HighThreshold:
			r.RiskLevel = entity.RiskHigh
		case score >= entity.MediumThreshold:
			r.RiskLevel = entity.RiskMedium
		case score > 0:
			r.RiskLevel = entity.RiskSafe
		default:
			r.RiskLevel = entity.RiskUnknown
		}
	}
	return r
}

func (s *TrustScorer) reputation(source string) float64 {
	if rep, ok := s.cfg.SourceTrust[strings.ToLower(source)]; ok {
		return rep
	}
	return s.cfg.DefaultSourceTrust
}

func (s *TrustScorer) sourceCount(r *entity.Record) int {
	if len(r.Agg.Sources) > 0 {
		return len(r.Agg.Sources)
	}
	if s.idx != nil {
		return s.idx.SourceCount(r.Fingerprint)
	}
	return 1
}

// evidenceScore rewards records carrying corroborating context: a working
// link, a substantial snippet of surrounding text, and any raw evidence.
func evidenceScore(r *entity.Record) float64 {
	score := 0.0
	if u, err := url.Parse(r.URL); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		score += 0.45
	}
	if len(strings.TrimSpace(r.Context)) >= 20 {
		score += 0.35
	}
	if len(r.Evidence) > 0 {
		score += 0.20
	}
	return clamp01(score)
}

// crossSourceScore steps up with the number of independent sources.
func crossSourceScore(count int) float64 {
	switch {
	case count >= 4:
		return 0.90
	case count == 3:
		return 0.75
	case count == 2:
		return 0.55
	default:
		return 0.25
	}
}
