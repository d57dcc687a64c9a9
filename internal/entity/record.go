// Package entity defines the canonical scam entity record shared by every
// pipeline stage: the normalized value, its identity fingerprint, the risk
// outputs written by the scorers, and the aggregation extension populated
// during batch dedup.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Type identifies the kind of contact entity being tracked.
type Type string

const (
	TypePhone Type = "PHONE"
	TypeBank  Type = "BANK"
	TypeURL   Type = "URL"
)

// ID returns the numeric type id used by the storage backend.
func (t Type) ID() int {
	switch t {
	case TypePhone:
		return 1
	case TypeBank:
		return 2
	case TypeURL:
		return 3
	default:
		return 0
	}
}

// Valid reports whether t is a known entity type.
func (t Type) Valid() bool {
	switch t {
	case TypePhone, TypeBank, TypeURL:
		return true
	}
	return false
}

// Country classifies where an entity belongs.
type Country string

const (
	CountryVN      Country = "VN"
	CountryINT     Country = "INT"
	CountryUnknown Country = "UNKNOWN"
)

// RiskLevel is the coarse verdict derived from the risk score.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// ID returns the numeric risk level id used by the storage backend.
func (l RiskLevel) ID() int {
	switch l {
	case RiskSafe:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// Canonical score thresholds. Every stage that mutates the score after the
// pattern layer re-derives the level through these.
const (
	HighThreshold   = 70
	MediumThreshold = 40
)

// LevelForScore maps a risk score to the canonical risk level.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskSafe
	}
}

// ReportStats holds human-report counts for an entity, grouped by the
// moderation status of the report.
type ReportStats struct {
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

// Aggregation is the extension populated after batch dedup. It is owned by
// the record from creation and filled in progressively: frequency and
// sources by the batch aggregator, trust fields by the trust scorer.
type Aggregation struct {
	// Frequency is the number of raw observations that collapsed into this
	// fingerprint. Zero means "not aggregated yet" and is treated as 1.
	Frequency int `json:"frequency,omitempty"`

	// Sources is the set of distinct origins that reported this entity.
	Sources map[string]struct{} `json:"-"`

	// TrustScore is the source-credibility blend in [0,1]. TrustScored
	// records whether the trust layer has run.
	TrustScore   float64        `json:"trust_score,omitempty"`
	TrustScored  bool           `json:"-"`
	TrustFactors map[string]any `json:"trust_factors,omitempty"`
}

// SourceList returns the distinct sources in deterministic order.
func (a *Aggregation) SourceList() []string {
	out := make([]string, 0, len(a.Sources))
	for s := range a.Sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Record is one normalized observation of a potentially fraudulent entity.
// The identity fields (Type, Value, Country, Fingerprint) are immutable
// after construction; the risk fields are overwritten by each scorer stage.
type Record struct {
	Type        Type    `json:"entity_type"`
	Value       string  `json:"entity_value"`
	Country     Country `json:"country"`
	Source      string  `json:"source"`
	Fingerprint string  `json:"hash"`

	CreatedAt time.Time `json:"created_at"`

	// Optional context carried along for evidence and explainability.
	RawValue string         `json:"raw_value,omitempty"`
	Context  string         `json:"context,omitempty"`
	URL      string         `json:"url,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`

	// Scoring outputs. Scored/ConfidenceSet distinguish "never scored"
	// from a legitimate zero.
	RiskScore     int       `json:"risk_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Confidence    float64   `json:"confidence"`
	Scored        bool      `json:"-"`
	ConfidenceSet bool      `json:"-"`

	// RiskSignals is the ordered, append-only trail of triggered rule ids.
	RiskSignals []string `json:"risk_signals,omitempty"`

	ReportStats ReportStats `json:"report_stats"`
	Agg         Aggregation `json:"aggregation,omitempty"`
}

// New constructs a record from an already-normalized value and computes the
// identity fingerprint. CreatedAt defaults to the current UTC time; the
// fingerprint is never recomputed afterwards.
func New(t Type, value string, country Country, source string) *Record {
	return &Record{
		Type:        t,
		Value:       value,
		Country:     country,
		Source:      source,
		Fingerprint: Fingerprint(t, value, country),
		CreatedAt:   time.Now().UTC(),
		RiskLevel:   RiskUnknown,
	}
}

// Fingerprint derives the deterministic identity hash for an entity. Two
// observations normalizing to the same (type, value, country) triple share
// a fingerprint regardless of source or raw text.
func Fingerprint(t Type, value string, country Country) string {
	raw := fmt.Sprintf("%s|%s|%s", t, value, country)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EnsureEvidence returns the evidence bag, allocating it on first use.
func (r *Record) EnsureEvidence() map[string]any {
	if r.Evidence == nil {
		r.Evidence = make(map[string]any)
	}
	return r.Evidence
}

// AddSignal appends a triggered rule id to the risk trail and mirrors the
// full trail into the evidence bag for export.
func (r *Record) AddSignal(rule string) {
	r.RiskSignals = append(r.RiskSignals, rule)
	r.EnsureEvidence()["rules_triggered"] = append([]string(nil), r.RiskSignals...)
}

// SetScore overwrites the risk score and re-derives the canonical level.
func (r *Record) SetScore(score int) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	r.RiskScore = score
	r.Scored = true
	r.RiskLevel = LevelForScore(score)
}

// SetConfidence overwrites the confidence, clamped to [0,1].
func (r *Record) SetConfidence(c float64) {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	r.Confidence = c
	r.ConfidenceSet = true
}

// RaiseConfidence lifts confidence to at least c, never lowering it.
func (r *Record) RaiseConfidence(c float64) {
	if !r.ConfidenceSet || c > r.Confidence {
		r.SetConfidence(c)
	}
}

// AddSource records an origin in the aggregation extension.
func (r *Record) AddSource(source string) {
	if r.Agg.Sources == nil {
		r.Agg.Sources = make(map[string]struct{})
	}
	r.Agg.Sources[source] = struct{}{}
}
