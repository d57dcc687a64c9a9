package similarity

import (
	"math"
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// =============================================================================
// Embedder Tests
// =============================================================================

// TestEmbed_Deterministic verifies the same text always embeds to the
// same vector.
func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder()
	a := e.Embed("chuyển khoản lừa đảo vào tài khoản 123")
	b := e.Embed("chuyển khoản lừa đảo vào tài khoản 123")

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at dim %d", i)
		}
	}
}

// TestEmbed_UnitNorm verifies non-empty text produces a unit vector.
func TestEmbed_UnitNorm(t *testing.T) {
	e := NewEmbedder()
	v := e.Embed("verify your bank account now")

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("squared norm = %f, want 1.0", norm)
	}
}

// TestEmbed_EmptyTextIsZero verifies token-free text yields the zero
// vector rather than NaNs.
func TestEmbed_EmptyTextIsZero(t *testing.T) {
	e := NewEmbedder()
	for _, text := range []string{"", "   ", "!!! ???"} {
		v := e.Embed(text)
		if len(v) != Dim {
			t.Fatalf("dimension = %d, want %d", len(v), Dim)
		}
		for i, x := range v {
			if x != 0 {
				t.Fatalf("Embed(%q)[%d] = %f, want 0", text, i, x)
			}
		}
	}
}

// TestCosine_Bounds verifies self-similarity is 1 and orthogonal or
// zero vectors score 0.
func TestCosine_Bounds(t *testing.T) {
	e := NewEmbedder()
	v := e.Embed("fake bank login page")

	if got := Cosine(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("self cosine = %f, want 1.0", got)
	}
	if got := Cosine(v, make([]float64, Dim)); got != 0 {
		t.Errorf("zero vector cosine = %f, want 0", got)
	}
	if got := Cosine(v, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
}

// TestCosine_SimilarTextCloser verifies overlapping text scores higher
// than unrelated text.
func TestCosine_SimilarTextCloser(t *testing.T) {
	e := NewEmbedder()
	base := e.Embed("fake bank login page verify account")
	near := e.Embed("fake bank login page verify password")
	far := e.Embed("weather forecast sunny tomorrow afternoon")

	if Cosine(base, near) <= Cosine(base, far) {
		t.Error("overlapping text should be closer than unrelated text")
	}
}

// TestBuildRecordText verifies the canonical field order and that the
// optional fields only appear when set.
func TestBuildRecordText(t *testing.T) {
	r := entity.New(entity.TypeURL, "https://scam.example.com/login", entity.CountryINT, "phishtank")
	minimal := BuildRecordText(r)
	want := "type:URL | value:https://scam.example.com/login | country:INT | source:phishtank"
	if minimal != want {
		t.Errorf("minimal text = %q, want %q", minimal, want)
	}

	r.Context = "phishing page"
	r.AddSignal("URL_SUSPICIOUS_KEYWORD")
	full := BuildRecordText(r)
	if len(full) <= len(minimal) {
		t.Error("optional fields should extend the text")
	}
}

// =============================================================================
// Index and Scorer Tests
// =============================================================================

// TestIndex_QueryRanksBestFirst verifies topK ordering and truncation.
func TestIndex_QueryRanksBestFirst(t *testing.T) {
	e := NewEmbedder()
	ix := NewIndex()
	ix.Add("near", "HIGH", e.Embed("fake bank login verify account now"))
	ix.Add("far", "HIGH", e.Embed("completely unrelated gardening tips"))
	ix.Add("mid", "HIGH", e.Embed("fake bank page"))

	matches := ix.Query(e.Embed("fake bank login verify account today"), 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "near" {
		t.Errorf("best match = %s, want near", matches[0].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches not sorted best first")
	}
}

// TestScorer_AttachBelowThresholdIsNoop verifies no evidence is written
// when nothing resembles the record.
func TestScorer_AttachBelowThresholdIsNoop(t *testing.T) {
	e := NewEmbedder()
	ix := NewIndex()
	ix.Add("ref", "HIGH", e.Embed("totally different reference text about gardening"))

	s := NewScorer(e, ix, 0.85, 5, nil)
	r := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "facebook")
	s.Attach(r)

	if _, ok := r.Evidence["similarity"]; ok {
		t.Error("similarity evidence attached below threshold")
	}
}

// TestScorer_AttachWritesPayload verifies a near-duplicate reference
// produces the similarity payload the AI layer consumes.
func TestScorer_AttachWritesPayload(t *testing.T) {
	e := NewEmbedder()
	ix := NewIndex()
	s := NewScorer(e, ix, 0.85, 5, nil)

	ref := entity.New(entity.TypeURL, "https://scam.example.com/login", entity.CountryINT, "phishtank")
	s.IndexRecord(ref)

	// Same identity text embeds identically, so cosine is 1.
	r := entity.New(entity.TypeURL, "https://scam.example.com/login", entity.CountryINT, "phishtank")
	s.Attach(r)

	payload, ok := r.Evidence["similarity"].(map[string]any)
	if !ok {
		t.Fatal("similarity payload missing")
	}
	score := payload["score"].(float64)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score = %f, want 1.0", score)
	}
	if risk := payload["suggested_risk"].(int); risk < 79 || risk > 80 {
		t.Errorf("suggested_risk = %d, want ~80", risk)
	}
	conf := payload["confidence"].(float64)
	if math.Abs(conf-0.7) > 1e-9 {
		t.Errorf("confidence = %f, want 0.7 with one match", conf)
	}
}

// TestScorer_EmptyIndexIsNoop verifies attaching against an empty index
// does nothing.
func TestScorer_EmptyIndexIsNoop(t *testing.T) {
	s := NewScorer(NewEmbedder(), NewIndex(), 0, 0, nil)
	r := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "facebook")
	s.Attach(r)

	if r.Evidence != nil {
		t.Error("empty index should attach nothing")
	}
}
