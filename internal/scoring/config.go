// Package scoring implements the layered risk scorer chain and the
// terminal aggregator. Stages run in a fixed order over a batch; the
// aggregator alone is authoritative for the persisted score.
package scoring

import "math"

// RuleWeights holds the fixed point contribution of each pattern rule.
type RuleWeights struct {
	PhoneSuspiciousPrefix int `yaml:"phone_suspicious_prefix"`
	PhoneMultiSource      int `yaml:"phone_multi_source"`
	BankSuspiciousContext int `yaml:"bank_suspicious_context"`
	BankMultiSource       int `yaml:"bank_multi_source"`
	URLSuspiciousKeyword  int `yaml:"url_suspicious_keyword"`
	URLShortener          int `yaml:"url_shortener"`
	URLMultiSource        int `yaml:"url_multi_source"`
}

// Config carries the immutable lookup tables the scorers evaluate
// against. It is injected into each stage; nothing here is mutated at
// runtime.
type Config struct {
	// Pattern layer tables.
	SuspiciousPhonePrefixes []string    `yaml:"suspicious_phone_prefixes"`
	SuspiciousURLKeywords   []string    `yaml:"suspicious_url_keywords"`
	ShortenerDomains        []string    `yaml:"shortener_domains"`
	BankScamKeywords        []string    `yaml:"bank_scam_keywords"`
	RuleWeights             RuleWeights `yaml:"rule_weights"`

	// Trust layer: per-source reputation in [0,1] and the default for
	// unknown sources.
	SourceTrust        map[string]float64 `yaml:"source_trust"`
	DefaultSourceTrust float64            `yaml:"default_source_trust"`

	// Aggregator: per-source credibility weight in points and the default
	// for unknown sources.
	SourceCredibility        map[string]int `yaml:"source_credibility"`
	DefaultSourceCredibility int            `yaml:"default_source_credibility"`
}

// DefaultConfig returns the production rule tables.
func DefaultConfig() Config {
	return Config{
		SuspiciousPhonePrefixes: []string{
			"1900", "1800", // premium-rate hotlines
			"024", "028", // landline prefixes commonly spoofed
		},
		SuspiciousURLKeywords: []string{
			"login", "verify", "secure", "account", "bank",
			"update", "confirm", "wallet", "payment",
		},
		ShortenerDomains: []string{
			"bit.ly", "tinyurl.com", "t.co", "goo.gl",
		},
		BankScamKeywords: []string{
			"chuyển khoản", "chiếm đoạt", "phong tỏa",
			"hoàn tiền", "lừa đảo", "mạo danh",
		},
		RuleWeights: RuleWeights{
			PhoneSuspiciousPrefix: 40,
			PhoneMultiSource:      30,
			BankSuspiciousContext: 50,
			BankMultiSource:       30,
			URLSuspiciousKeyword:  40,
			URLShortener:          30,
			URLMultiSource:        30,
		},
		SourceTrust: map[string]float64{
			"ncsc":      0.95,
			"police":    0.92,
			"news":      0.85,
			"phishtank": 0.88,
			"facebook":  0.55,
			"tiktok":    0.50,
		},
		DefaultSourceTrust: 0.60,
		SourceCredibility: map[string]int{
			"facebook":    5,
			"tiktok":      5,
			"news":        15,
			"ncsc":        25,
			"police":      35,
			"phishtank":   40,
			"user_report": 20,
		},
		DefaultSourceCredibility: 5,
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
