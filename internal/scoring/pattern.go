package scoring

import (
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Rule identifiers appended to the risk trail, in evaluation order.
const (
	RulePhoneSuspiciousPrefix = "PHONE_SUSPICIOUS_PREFIX"
	RulePhoneMultiSource      = "PHONE_MULTI_SOURCE"
	RuleBankSuspiciousContext = "BANK_SUSPICIOUS_CONTEXT"
	RuleBankMultiSource       = "BANK_MULTI_SOURCE"
	RuleURLSuspiciousKeyword  = "URL_SUSPICIOUS_KEYWORD"
	RuleURLShortener          = "URL_SHORTENER"
	RuleURLMultiSource        = "URL_MULTI_SOURCE"
)

// Provisional thresholds for the pattern layer only. The output of this
// layer is explanatory, not authoritative, and deliberately uses a lower
// MEDIUM bound than the canonical thresholds applied after aggregation.
const (
	patternHighThreshold   = 70
	patternMediumThreshold = 30
)

// SourceIndex maps a fingerprint to the distinct sources that observed it
// within a batch. It must be fully built before any per-record scoring
// begins; the multi-source rules depend on it.
type SourceIndex map[string]map[string]struct{}

// BuildSourceIndex indexes a batch by fingerprint.
func BuildSourceIndex(records []*entity.Record) SourceIndex {
	idx := make(SourceIndex, len(records))
	for _, r := range records {
		sources, ok := idx[r.Fingerprint]
		if !ok {
			sources = make(map[string]struct{})
			idx[r.Fingerprint] = sources
		}
		sources[r.Source] = struct{}{}
	}
	return idx
}

// SourceCount returns the number of distinct sources for a fingerprint,
// never less than 1.
func (idx SourceIndex) SourceCount(fingerprint string) int {
	n := len(idx[fingerprint])
	if n < 1 {
		return 1
	}
	return n
}

// PatternScorer evaluates the deterministic, type-specific rule sets.
type PatternScorer struct {
	cfg Config
	idx SourceIndex
}

// NewPatternScorer creates the pattern stage for one batch. idx must cover
// the whole batch the scorer will see.
func NewPatternScorer(cfg Config, idx SourceIndex) *PatternScorer {
	return &PatternScorer{cfg: cfg, idx: idx}
}

// Name implements Stage.
func (s *PatternScorer) Name() string { return "pattern" }

// Score evaluates the rule set for the record's type, assigns the
// provisional score/level and the rule-count confidence, and appends the
// triggered rule ids to the risk trail.
func (s *PatternScorer) Score(r *entity.Record) *entity.Record {
	score := 0
	triggered := 0

	trigger := func(rule string, weight int) {
		r.AddSignal(rule)
		score += weight
		triggered++
	}

	multiSource := s.idx.SourceCount(r.Fingerprint) >= 2
	w := s.cfg.RuleWeights

	switch r.Type {
	case entity.TypePhone:
		if hasAnyPrefix(r.Value, s.cfg.SuspiciousPhonePrefixes) {
			trigger(RulePhoneSuspiciousPrefix, w.PhoneSuspiciousPrefix)
		}
		if multiSource {
			trigger(RulePhoneMultiSource, w.PhoneMultiSource)
		}

	case entity.TypeBank:
		context := strings.ToLower(r.Context)
		if containsAny(context, s.cfg.BankScamKeywords) {
			trigger(RuleBankSuspiciousContext, w.BankSuspiciousContext)
		}
		if multiSource {
			trigger(RuleBankMultiSource, w.BankMultiSource)
		}

	case entity.TypeURL:
		value := strings.ToLower(r.Value)
		if containsAny(value, s.cfg.SuspiciousURLKeywords) {
			trigger(RuleURLSuspiciousKeyword, w.URLSuspiciousKeyword)
		}
		if containsAny(value, s.cfg.ShortenerDomains) {
			trigger(RuleURLShortener, w.URLShortener)
		}
		if multiSource {
			trigger(RuleURLMultiSource, w.URLMultiSource)
		}
	}

	r.RiskScore = clampScore(score)
	r.Scored = true
	switch {
	case score >= patternHighThreshold:
		r.RiskLevel = entity.RiskHigh
	case score >= patternMediumThreshold:
		r.RiskLevel = entity.RiskMedium
	default:
		r.RiskLevel = entity.RiskSafe
	}

	r.SetConfidence(0.4 + 0.1*float64(triggered))
	return r
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

func containsAny(value string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(value, n) {
			return true
		}
	}
	return false
}
