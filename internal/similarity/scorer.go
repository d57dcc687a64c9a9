package similarity

import (
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// DefaultThreshold is the minimum cosine similarity for a match to count
// as resemblance to a known scam.
const DefaultThreshold = 0.85

// suggestedRiskScale converts the best match similarity into a suggested
// risk score.
const suggestedRiskScale = 80

// Scorer queries the reference index for each record and attaches a
// similarity payload to the evidence bag when the resemblance crosses the
// threshold. It never writes the risk score itself; the AI layer reads
// the payload and applies a bounded adjustment.
type Scorer struct {
	embedder  *Embedder
	index     *Index
	threshold float64
	topK      int
	logger    *zap.Logger
}

// NewScorer creates a similarity scorer over a pre-populated index. A
// non-positive threshold falls back to DefaultThreshold.
func NewScorer(embedder *Embedder, index *Index, threshold float64, topK int, logger *zap.Logger) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		embedder:  embedder,
		index:     index,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Attach queries the index for the record and, when matches clear the
// threshold, writes the similarity payload into the evidence bag.
func (s *Scorer) Attach(r *entity.Record) {
	if s.index.Len() == 0 {
		return
	}

	vec := s.embedder.Embed(BuildRecordText(r))
	candidates := s.index.Query(vec, s.topK)

	var matches []Match
	for _, m := range candidates {
		if m.Score >= s.threshold {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return
	}

	best := matches[0].Score
	confidence := 0.6 + 0.1*float64(len(matches))
	if confidence > 1 {
		confidence = 1
	}

	r.EnsureEvidence()["similarity"] = map[string]any{
		"score":          best,
		"suggested_risk": int(suggestedRiskScale * best),
		"confidence":     confidence,
		"matches":        matches,
	}

	s.logger.Debug("similarity match",
		zap.String("fingerprint", r.Fingerprint),
		zap.Float64("best", best),
		zap.Int("matches", len(matches)))
}

// AttachBatch runs Attach over a batch.
func (s *Scorer) AttachBatch(records []*entity.Record) {
	for _, r := range records {
		s.Attach(r)
	}
}

// IndexRecord embeds a confirmed scam record and adds it to the reference
// index under its fingerprint.
func (s *Scorer) IndexRecord(r *entity.Record) {
	vec := s.embedder.Embed(BuildRecordText(r))
	s.index.Add(r.Fingerprint, string(r.RiskLevel), vec)
}
