package scoring

import (
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

func testRecord(t entity.Type, value string, source string) *entity.Record {
	country := entity.CountryVN
	if t == entity.TypeURL {
		country = entity.CountryINT
	}
	r := entity.New(t, value, country, source)
	return r
}

func scoreOne(r *entity.Record, batch ...*entity.Record) *entity.Record {
	all := append([]*entity.Record{r}, batch...)
	idx := BuildSourceIndex(all)
	return NewPatternScorer(DefaultConfig(), idx).Score(r)
}

// =============================================================================
// Source Index Tests
// =============================================================================

// TestBuildSourceIndex_CountsDistinctSources verifies the pre-pass counts
// distinct sources per fingerprint, not observations.
func TestBuildSourceIndex_CountsDistinctSources(t *testing.T) {
	a := testRecord(entity.TypePhone, "0912345678", "facebook")
	b := testRecord(entity.TypePhone, "0912345678", "tiktok")
	c := testRecord(entity.TypePhone, "0912345678", "facebook")
	d := testRecord(entity.TypePhone, "0999999999", "facebook")

	idx := BuildSourceIndex([]*entity.Record{a, b, c, d})

	if got := idx.SourceCount(a.Fingerprint); got != 2 {
		t.Errorf("expected 2 distinct sources, got %d", got)
	}
	if got := idx.SourceCount(d.Fingerprint); got != 1 {
		t.Errorf("expected 1 source, got %d", got)
	}
	if got := idx.SourceCount("missing"); got != 1 {
		t.Errorf("unknown fingerprint should count as 1, got %d", got)
	}
}

// =============================================================================
// Phone Rule Tests
// =============================================================================

// TestPattern_PhoneSuspiciousPrefix verifies the premium-rate prefix rule.
func TestPattern_PhoneSuspiciousPrefix(t *testing.T) {
	r := scoreOne(testRecord(entity.TypePhone, "1900123456", "facebook"))

	if r.RiskScore != 40 {
		t.Errorf("score = %d, want 40", r.RiskScore)
	}
	if r.RiskLevel != entity.RiskMedium {
		t.Errorf("40 points should be provisional MEDIUM, got %s", r.RiskLevel)
	}
	if len(r.RiskSignals) != 1 || r.RiskSignals[0] != RulePhoneSuspiciousPrefix {
		t.Errorf("signals = %v", r.RiskSignals)
	}
}

// TestPattern_PhoneMultiSource verifies prefix plus corroboration crosses
// the provisional HIGH bar.
func TestPattern_PhoneMultiSource(t *testing.T) {
	a := testRecord(entity.TypePhone, "1900123456", "facebook")
	b := testRecord(entity.TypePhone, "1900123456", "tiktok")
	r := scoreOne(a, b)

	if r.RiskScore != 70 {
		t.Errorf("score = %d, want 70", r.RiskScore)
	}
	if r.RiskLevel != entity.RiskHigh {
		t.Errorf("70 points should be HIGH, got %s", r.RiskLevel)
	}
}

// TestPattern_CleanPhoneIsSafe verifies no rules means zero score and a
// base confidence of 0.4.
func TestPattern_CleanPhoneIsSafe(t *testing.T) {
	r := scoreOne(testRecord(entity.TypePhone, "0912345678", "news"))

	if r.RiskScore != 0 || r.RiskLevel != entity.RiskSafe {
		t.Errorf("clean phone scored %d/%s", r.RiskScore, r.RiskLevel)
	}
	if r.Confidence != 0.4 {
		t.Errorf("base confidence = %f, want 0.4", r.Confidence)
	}
	if !r.Scored {
		t.Error("pattern layer should mark the record scored even at zero")
	}
}

// =============================================================================
// Bank Rule Tests
// =============================================================================

// TestPattern_BankSuspiciousContext verifies the scam keyword match is
// case-insensitive on the surrounding context.
func TestPattern_BankSuspiciousContext(t *testing.T) {
	r := testRecord(entity.TypeBank, "123456789012", "facebook")
	r.Context = "Cảnh báo LỪA ĐẢO chuyển khoản vào tài khoản này"
	scoreOne(r)

	if r.RiskScore != 50 {
		t.Errorf("score = %d, want 50", r.RiskScore)
	}
	if r.RiskSignals[0] != RuleBankSuspiciousContext {
		t.Errorf("signals = %v", r.RiskSignals)
	}
}

// TestPattern_BankContextOnValueIgnored verifies bank keywords only match
// the context, never the value.
func TestPattern_BankContextOnValueIgnored(t *testing.T) {
	r := scoreOne(testRecord(entity.TypeBank, "123456789012", "facebook"))

	if r.RiskScore != 0 {
		t.Errorf("bank with no context should score 0, got %d", r.RiskScore)
	}
}

// =============================================================================
// URL Rule Tests
// =============================================================================

// TestPattern_URLRules verifies keyword, shortener and multi-source rules
// stack in order.
func TestPattern_URLRules(t *testing.T) {
	a := testRecord(entity.TypeURL, "https://bit.ly/verify-account", "facebook")
	b := testRecord(entity.TypeURL, "https://bit.ly/verify-account", "phishtank")
	r := scoreOne(a, b)

	if r.RiskScore != 100 {
		t.Errorf("40+30+30 should score 100, got %d", r.RiskScore)
	}
	if r.RiskLevel != entity.RiskHigh {
		t.Errorf("level = %s, want HIGH", r.RiskLevel)
	}

	want := []string{RuleURLSuspiciousKeyword, RuleURLShortener, RuleURLMultiSource}
	if len(r.RiskSignals) != len(want) {
		t.Fatalf("signals = %v", r.RiskSignals)
	}
	for i := range want {
		if r.RiskSignals[i] != want[i] {
			t.Errorf("signals[%d] = %s, want %s", i, r.RiskSignals[i], want[i])
		}
	}
	if r.Confidence < 0.699 || r.Confidence > 0.701 {
		t.Errorf("confidence with 3 rules = %f, want 0.7", r.Confidence)
	}
}

// TestPattern_ScoreCapped verifies the sum clamps at 100 even when the
// weights exceed it.
func TestPattern_ScoreCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RuleWeights.URLSuspiciousKeyword = 90
	cfg.RuleWeights.URLShortener = 90

	r := testRecord(entity.TypeURL, "https://bit.ly/login", "facebook")
	idx := BuildSourceIndex([]*entity.Record{r})
	NewPatternScorer(cfg, idx).Score(r)

	if r.RiskScore != 100 {
		t.Errorf("score should cap at 100, got %d", r.RiskScore)
	}
}

// TestPattern_ProvisionalMediumThreshold verifies the pattern layer uses
// its own 30 point MEDIUM bar, below the canonical one.
func TestPattern_ProvisionalMediumThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RuleWeights.URLShortener = 30

	r := testRecord(entity.TypeURL, "https://bit.ly/x", "facebook")
	idx := BuildSourceIndex([]*entity.Record{r})
	NewPatternScorer(cfg, idx).Score(r)

	if r.RiskScore != 30 {
		t.Fatalf("score = %d, want 30", r.RiskScore)
	}
	if r.RiskLevel != entity.RiskMedium {
		t.Errorf("30 points should be provisional MEDIUM, got %s", r.RiskLevel)
	}
}
