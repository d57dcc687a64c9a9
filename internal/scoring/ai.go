package scoring

import (
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// AI adjustment bounds. The model layer can only nudge the score, never
// set it: the combined delta is clamped before it is applied.
const (
	aiDeltaMin = -15
	aiDeltaMax = 20
)

// AIScorer folds model verdicts and similarity hints from the evidence
// bag into a bounded score adjustment. It reads ai_risk_score (a [0,1]
// probability), ai_label (SCAM/SAFE) and the similarity payload written
// by the similarity scorer.
type AIScorer struct{}

// NewAIScorer creates the AI stage.
func NewAIScorer() *AIScorer { return &AIScorer{} }

// Name implements Stage.
func (s *AIScorer) Name() string { return "ai" }

// Score applies the clamped AI delta and lifts confidence toward the
// model's own confidence where the model is more certain.
func (s *AIScorer) Score(r *entity.Record) *entity.Record {
	delta := 0

	if p, ok := evidenceFloat(r.Evidence, "ai_risk_score"); ok {
		switch {
		case p >= 0.85:
			delta += 15
		case p >= 0.7:
			delta += 10
		case p <= 0.3:
			delta -= 10
		}
		if p > r.Confidence {
			r.SetConfidence(p)
		}
	}

	if label, ok := r.Evidence["ai_label"].(string); ok {
		switch strings.ToUpper(label) {
		case "SCAM":
			delta += 10
		case "SAFE":
			delta -= 10
		}
	}

	if sim, ok := r.Evidence["similarity"].(map[string]any); ok {
		if score, ok := evidenceFloat(sim, "score"); ok {
			switch {
			case score >= 0.9:
				delta += 10
			case score >= 0.85:
				delta += 5
			}
			c := 0.6 + score
			if c > 1 {
				c = 1
			}
			if c > r.Confidence {
				r.SetConfidence(c)
			}
		}
	}

	if delta < aiDeltaMin {
		delta = aiDeltaMin
	}
	if delta > aiDeltaMax {
		delta = aiDeltaMax
	}

	r.SetScore(r.RiskScore + delta)
	return r
}

func evidenceFloat(evidence map[string]any, key string) (float64, bool) {
	switch v := evidence[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
