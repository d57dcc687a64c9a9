// Package similarity provides a dependency-free text embedder, an
// in-memory vector index and a scorer that flags records resembling known
// scam entities. Embeddings are deterministic hashed bag-of-words vectors,
// so the same text always maps to the same point.
package similarity

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Dim is the embedding dimensionality.
const Dim = 384

// bigramWeight discounts bigram features relative to unigrams.
const bigramWeight = 0.7

// maxTextLen bounds the text fed to the embedder.
const maxTextLen = 1200

var nonWordRe = regexp.MustCompile(`\W+`)

// Embedder maps text to fixed-size vectors via feature hashing: each
// token (and each adjacent-token bigram) is hashed to a dimension and a
// sign, accumulated, then the vector is L2-normalized.
type Embedder struct{}

// NewEmbedder creates the hashed embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Embed returns the normalized embedding for text. Empty or token-free
// text yields the zero vector.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, Dim)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		idx, sign := hashFeature(tok)
		vec[idx] += sign
	}
	for i := 0; i+1 < len(tokens); i++ {
		idx, sign := hashFeature(tokens[i] + "_" + tokens[i+1])
		vec[idx] += bigramWeight * sign
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(cleaned)
}

// hashFeature maps a feature string to a dimension and a +1/-1 sign.
func hashFeature(feature string) (int, float64) {
	h := sha256.Sum256([]byte(feature))
	idx := int(binary.LittleEndian.Uint32(h[:4])) % Dim
	if idx < 0 {
		idx += Dim
	}
	sign := 1.0
	if h[4]&1 == 1 {
		sign = -1.0
	}
	return idx, sign
}

// Cosine returns the cosine similarity of two equal-length vectors. Since
// Embed returns unit vectors this reduces to a dot product, but the norm
// terms keep it correct for arbitrary input.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// BuildRecordText flattens a record into the canonical text fed to the
// embedder: identity fields first, then the optional context fields that
// carry scam-specific vocabulary.
func BuildRecordText(r *entity.Record) string {
	parts := []string{
		fmt.Sprintf("type:%s", r.Type),
		fmt.Sprintf("value:%s", r.Value),
		fmt.Sprintf("country:%s", r.Country),
		fmt.Sprintf("source:%s", r.Source),
	}
	if r.URL != "" {
		parts = append(parts, fmt.Sprintf("url:%s", r.URL))
	}
	if len(r.RiskSignals) > 0 {
		parts = append(parts, fmt.Sprintf("rules:%s", strings.Join(r.RiskSignals, ",")))
	}
	if r.Context != "" {
		parts = append(parts, fmt.Sprintf("context:%s", r.Context))
	}

	text := strings.Join(parts, " | ")
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	return text
}
